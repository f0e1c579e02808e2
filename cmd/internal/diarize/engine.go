// Package diarize provides the speaker-diarization capability interface
// with two implementations: an HTTP adapter for a pyannote-style service
// and a fixed-duration fallback used when no service is configured or
// reachable. The implementation is selected once at construction.
package diarize

import "context"

// Turn is one speaker-attributed time interval, relative to the start of
// the submitted audio. Labels are only meaningful within a single call.
type Turn struct {
	SpeakerLabel string  `json:"speaker_label"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Confidence   float64 `json:"confidence"`
}

// Constraints bound the number of speakers the engine may report. Zero
// values mean unconstrained.
type Constraints struct {
	NumSpeakers int `json:"num_speakers,omitempty"`
	MinSpeakers int `json:"min_speakers,omitempty"`
	MaxSpeakers int `json:"max_speakers,omitempty"`
}

// Engine is the diarization capability consumed by the chunk processor.
type Engine interface {
	// Diarize labels speaker turns in one mono PCM span. Turns are
	// returned ordered by start time.
	Diarize(ctx context.Context, samples []float64, sampleRate int, constraints Constraints) ([]Turn, error)

	// HealthCheck verifies the engine is operational.
	HealthCheck(ctx context.Context) (bool, error)

	// Name identifies the implementation for logging.
	Name() string
}
