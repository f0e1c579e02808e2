package audio

import (
	"fmt"
	"math"
)

// AudioChunk 一段连续的单声道 PCM 切片，时间戳为原始音频时间线上的秒数
// 创建后不可变，处理完成即丢弃
type AudioChunk struct {
	ChunkID    int
	StartTime  float64
	EndTime    float64
	SampleRate int
	Samples    []float64
}

// Duration returns the chunk length in seconds.
func (c *AudioChunk) Duration() float64 {
	return c.EndTime - c.StartTime
}

// ChunkingError 切片参数非法，立即失败，不产生任何部分结果
type ChunkingError struct {
	ChunkDuration   float64
	OverlapDuration float64
	Reason          string
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("invalid chunking parameters (chunk=%gs overlap=%gs): %s",
		e.ChunkDuration, e.OverlapDuration, e.Reason)
}

// Chunk splits a buffer into ordered chunks of chunkDuration seconds with
// overlapDuration seconds appended at the trailing edge of every chunk
// except the last. Chunk i spans [i*C, min(D, i*C+C+O)], so the union of
// all chunks covers [0, D] with no gaps and the only redundancy is the
// intentional tail overlap.
func Chunk(buf *Buffer, chunkDuration, overlapDuration float64) ([]AudioChunk, error) {
	if err := validateChunkParams(chunkDuration, overlapDuration); err != nil {
		return nil, err
	}

	duration := buf.Duration()

	// short audio needs no splitting at all
	if duration <= chunkDuration {
		return []AudioChunk{{
			ChunkID:    0,
			StartTime:  0,
			EndTime:    duration,
			SampleRate: buf.SampleRate,
			Samples:    buf.Samples,
		}}, nil
	}

	totalChunks := int(math.Ceil(duration / chunkDuration))
	chunks := make([]AudioChunk, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		start := float64(i) * chunkDuration
		end := math.Min(duration, start+chunkDuration+overlapDuration)

		startIdx := int(start * float64(buf.SampleRate))
		endIdx := int(end * float64(buf.SampleRate))
		if endIdx > len(buf.Samples) {
			endIdx = len(buf.Samples)
		}

		chunks = append(chunks, AudioChunk{
			ChunkID:    i,
			StartTime:  start,
			EndTime:    end,
			SampleRate: buf.SampleRate,
			Samples:    buf.Samples[startIdx:endIdx],
		})
	}

	return chunks, nil
}

func validateChunkParams(chunkDuration, overlapDuration float64) error {
	switch {
	case chunkDuration <= 0:
		return &ChunkingError{chunkDuration, overlapDuration, "chunk duration must be positive"}
	case overlapDuration < 0:
		return &ChunkingError{chunkDuration, overlapDuration, "overlap duration must be non-negative"}
	case overlapDuration >= chunkDuration:
		return &ChunkingError{chunkDuration, overlapDuration, "overlap must be smaller than chunk duration"}
	}
	return nil
}
