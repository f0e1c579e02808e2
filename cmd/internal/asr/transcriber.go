// Package asr provides an abstraction layer for speech-to-text services.
// It defines a standard interface and data structures supporting multiple
// implementations (HTTP whisper-compatible services and a mock fallback).
package asr

import (
	"context"
	"time"
)

// Segment is a single transcribed interval with timing relative to the
// start of the submitted audio span.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the complete output of one transcription call.
type Result struct {
	Segments []Segment `json:"segments"`
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}

// Transcriber is the capability interface the pipeline consumes. Callers
// treat any returned error as span-local degradation: the span keeps empty
// text and low confidence, the chunk is never aborted.
type Transcriber interface {
	// Transcribe converts one mono PCM span to text. Implementations must
	// respect context cancellation and deadline; an empty transcription is
	// a valid Result with zero segments, not an error.
	Transcribe(ctx context.Context, samples []float64, sampleRate int, options *Options) (*Result, error)

	// HealthCheck verifies that the service is operational. It should be
	// lightweight; the mock fallback always reports (false, nil).
	HealthCheck(ctx context.Context) (bool, error)

	// Name identifies the implementation for logging and monitoring
	// (e.g. "go-whisper", "mock-degraded").
	Name() string
}

// Options are optional per-call transcription parameters. All fields are
// optional; implementations provide defaults.
type Options struct {
	// Model selects the whisper model (default "ggml-base").
	Model string

	// Language forces a language (ISO 639-1); empty means auto-detect.
	Language string

	// Prompt provides context for domain-specific terminology.
	Prompt string

	// Timeout bounds a single call; zero uses the client default.
	Timeout time.Duration
}
