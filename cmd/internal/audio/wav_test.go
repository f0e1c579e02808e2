package audio

import (
	"math"
	"testing"
)

func TestWavRoundTrip(t *testing.T) {
	samples := sine(440, 0.5, 16000)

	data := EncodeWAV(samples, 16000)
	buf, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}

	if buf.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", buf.SampleRate)
	}
	if len(buf.Samples) != len(samples) {
		t.Fatalf("len(Samples) = %d, want %d", len(buf.Samples), len(samples))
	}
	for i := range samples {
		if math.Abs(buf.Samples[i]-samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %g, want ~%g", i, buf.Samples[i], samples[i])
		}
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"not riff", make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{Samples: make([]float64, 32000), SampleRate: 16000}
	if buf.Duration() != 2.0 {
		t.Errorf("Duration() = %g, want 2.0", buf.Duration())
	}
}

func TestResample(t *testing.T) {
	t.Run("same rate is identity", func(t *testing.T) {
		in := sine(100, 0.1, 8000)
		out := Resample(in, 8000, 8000)
		if len(out) != len(in) {
			t.Errorf("len = %d, want %d", len(out), len(in))
		}
	})

	t.Run("downsample halves length", func(t *testing.T) {
		in := make([]float64, 1600)
		out := Resample(in, 16000, 8000)
		if len(out) != 800 {
			t.Errorf("len = %d, want 800", len(out))
		}
	})

	t.Run("upsample doubles length", func(t *testing.T) {
		in := make([]float64, 800)
		out := Resample(in, 8000, 16000)
		if len(out) != 1600 {
			t.Errorf("len = %d, want 1600", len(out))
		}
	})
}
