// Package degradation switches between the primary ASR transcriber and
// the mock fallback based on health status, so chunk processing keeps
// producing (degraded) results when the real service is down.
package degradation

import (
	"log"
	"sync"

	"github.com/houzhh15/meetscribe/cmd/internal/asr"
	"github.com/houzhh15/meetscribe/cmd/internal/metrics"
	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator/health"
)

// DegradationController picks the active Transcriber from a primary and a
// fallback implementation, following the health checker's verdict.
// Recovery is automatic once the primary passes checks again.
//
// Thread-safety: all public methods are safe via sync.RWMutex.
type DegradationController struct {
	primaryTranscriber  asr.Transcriber
	fallbackTranscriber asr.Transcriber
	healthChecker       *health.HealthChecker
	currentTranscriber  asr.Transcriber
	mu                  sync.RWMutex
	isDegraded          bool
}

// NewDegradationController wires a primary transcriber, a fallback
// (typically the mock) and the health checker monitoring the primary.
// Initial state uses the primary.
func NewDegradationController(
	primary asr.Transcriber,
	fallback asr.Transcriber,
	hc *health.HealthChecker,
) *DegradationController {
	return &DegradationController{
		primaryTranscriber:  primary,
		fallbackTranscriber: fallback,
		healthChecker:       hc,
		currentTranscriber:  primary,
		isDegraded:          false,
	}
}

// GetTranscriber returns the active transcriber, switching to the
// fallback when the primary is unhealthy and back when it recovers.
func (dc *DegradationController) GetTranscriber() asr.Transcriber {
	status := dc.healthChecker.GetStatus()

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if !status.IsHealthy && !dc.isDegraded {
		log.Printf("[WARN] DegradationController: Degrading to fallback transcriber (%s) due to unhealthy primary (%s)",
			dc.fallbackTranscriber.Name(), dc.primaryTranscriber.Name())
		dc.currentTranscriber = dc.fallbackTranscriber
		dc.isDegraded = true
		metrics.SetASRDegraded(true)
	}

	if status.IsHealthy && dc.isDegraded {
		log.Printf("[INFO] DegradationController: Recovering to primary transcriber (%s)",
			dc.primaryTranscriber.Name())
		dc.currentTranscriber = dc.primaryTranscriber
		dc.isDegraded = false
		metrics.SetASRDegraded(false)
	}

	return dc.currentTranscriber
}

// IsDegraded reports whether the fallback transcriber is active.
func (dc *DegradationController) IsDegraded() bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.isDegraded
}
