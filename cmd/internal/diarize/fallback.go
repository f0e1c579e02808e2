package diarize

import (
	"context"
	"log"
	"log/slog"
	"time"
)

// FallbackLabel is the single synthetic speaker label the fallback emits.
const FallbackLabel = "SPEAKER_00"

// FallbackConfidence marks turns produced without real diarization.
const FallbackConfidence = 0.5

// FallbackEngine slices audio into fixed-duration single-speaker turns.
// Used when no diarization service is configured or the configured one is
// unreachable at startup. Everything is attributed to one synthetic
// speaker at reduced confidence.
type FallbackEngine struct {
	spanSeconds float64
}

// NewFallbackEngine creates a fallback engine emitting turns of
// spanSeconds each.
func NewFallbackEngine(spanSeconds float64) *FallbackEngine {
	if spanSeconds <= 0 {
		spanSeconds = 30
	}
	return &FallbackEngine{spanSeconds: spanSeconds}
}

// Diarize returns consecutive fixed-length turns covering the whole span,
// the last one truncated to the audio end.
func (e *FallbackEngine) Diarize(ctx context.Context, samples []float64, sampleRate int, constraints Constraints) ([]Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	duration := float64(len(samples)) / float64(sampleRate)
	var turns []Turn
	for start := 0.0; start < duration; start += e.spanSeconds {
		end := start + e.spanSeconds
		if end > duration {
			end = duration
		}
		turns = append(turns, Turn{
			SpeakerLabel: FallbackLabel,
			Start:        start,
			End:          end,
			Confidence:   FallbackConfidence,
		})
	}
	return turns, nil
}

// HealthCheck always reports healthy; the fallback has nothing to fail.
func (e *FallbackEngine) HealthCheck(ctx context.Context) (bool, error) {
	return true, nil
}

// Name returns the implementation identifier.
func (e *FallbackEngine) Name() string {
	return "fixed-span-fallback"
}

// Select picks the diarization engine once at construction time. With no
// URL configured the fallback is used outright; with a URL, a single
// health probe decides. The choice never changes afterwards.
func Select(logger *slog.Logger, apiURL string, timeout time.Duration, fallbackSpanSeconds float64) Engine {
	fallback := NewFallbackEngine(fallbackSpanSeconds)
	if apiURL == "" {
		logger.Warn("no diarization service configured, using fixed-span fallback",
			slog.Float64("span_seconds", fallback.spanSeconds))
		return fallback
	}

	engine := NewHTTPEngine(apiURL, timeout)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if healthy, err := engine.HealthCheck(ctx); !healthy {
		log.Printf("[WARN] diarization service %s unreachable (%v), using fixed-span fallback", apiURL, err)
		return fallback
	}

	logger.Info("diarization service selected", slog.String("engine", engine.Name()), slog.String("url", apiURL))
	return engine
}
