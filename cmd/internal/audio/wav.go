// Package audio implements decoding, chunking and acoustic feature
// extraction for the long-audio pipeline. All processing operates on
// decoded mono PCM represented as float64 samples in [-1, 1].
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CanonicalRate is the sample rate all feature computation is performed at.
const CanonicalRate = 16000

// Buffer 解码后的单声道 PCM 音频
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// DecodeWAV parses a PCM WAV file and downmixes to mono float64 samples.
// Only 16-bit PCM is supported, which is what the recording side produces.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("wav: file too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a RIFF/WAVE file")
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
	)

	// walk the sub-chunks; fmt must precede data
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too short")
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, fmt.Errorf("wav: unsupported format code %d (PCM only)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}
		// chunks are word-aligned
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if channels == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("wav: missing fmt chunk")
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d (16-bit PCM only)", bitsPerSample)
	}
	if pcm == nil {
		return nil, fmt.Errorf("wav: missing data chunk")
	}

	frameSize := 2 * channels
	numFrames := len(pcm) / frameSize
	samples := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := i*frameSize + c*2
			v := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			sum += float64(v) / 32768.0
		}
		samples[i] = sum / float64(channels)
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// EncodeWAV serializes mono float64 samples as a 16-bit PCM WAV file.
// Used when shipping chunk spans to the external ASR service.
func EncodeWAV(samples []float64, sampleRate int) []byte {
	dataSize := len(samples) * 2
	byteRate := sampleRate * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // Subchunk1Size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))  // NumChannels
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(2))  // BlockAlign
	binary.Write(buf, binary.LittleEndian, uint16(16)) // BitsPerSample
	// data chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.Write(buf, binary.LittleEndian, int16(s*32767))
	}

	return buf.Bytes()
}

// Resample converts samples from one rate to another by linear
// interpolation. Adequate for feature extraction; not used on the
// audio shipped to the ASR service.
func Resample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		return nil
	}
	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[idx]
		}
	}
	return out
}
