package asr

import (
	"context"
	"log"
)

// MockTranscriber is the fallback "degraded mode" implementation. It
// returns empty results without blocking so chunk processing keeps
// moving when no real ASR backend is reachable; the affected spans carry
// empty text and low confidence in the final transcript.
type MockTranscriber struct{}

// NewMockTranscriber creates the stateless mock instance.
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// Transcribe returns an empty result and never an error.
func (m *MockTranscriber) Transcribe(ctx context.Context, samples []float64, sampleRate int, options *Options) (*Result, error) {
	log.Printf("[WARN] MockTranscriber: Transcribe called (degraded mode), span of %d samples", len(samples))

	return &Result{
		Segments: []Segment{},
		Text:     "",
		Language: "unknown",
		Duration: float64(len(samples)) / float64(sampleRate),
	}, nil
}

// HealthCheck always reports unhealthy so the degradation controller
// knows the system is in fallback mode.
func (m *MockTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return false, nil
}

// Name returns "mock-degraded" to flag fallback mode in logs.
func (m *MockTranscriber) Name() string {
	return "mock-degraded"
}
