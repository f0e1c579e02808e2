// Package health provides periodic health probing for the external ASR
// service, with a configurable interval and consecutive-failure threshold.
package health

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/houzhh15/meetscribe/cmd/internal/asr"
)

// ServiceStatus is the current health state of the monitored service.
// Safe for JSON serialization; exposed via the health API endpoint.
type ServiceStatus struct {
	IsHealthy bool `json:"is_healthy"`

	LastCheckTime time.Time `json:"last_check_time"`

	// ConsecutiveFails counts failed checks in a row; reset on success.
	ConsecutiveFails int `json:"consecutive_fails"`

	// ErrorMessage holds the last failure; empty when healthy.
	ErrorMessage string `json:"error_message"`
}

// HealthChecker performs periodic health checks on a Transcriber and
// tracks consecutive failures to drive degradation.
//
// Thread-safety: all public methods are safe via sync.RWMutex.
type HealthChecker struct {
	transcriber   asr.Transcriber
	status        *ServiceStatus
	mu            sync.RWMutex
	checkInterval time.Duration
	failThreshold int
	stopChan      chan struct{}
}

// NewHealthChecker creates a checker probing transcriber every
// checkInterval, marking it unhealthy after failThreshold consecutive
// failures. The checker starts optimistic; call Start to begin probing.
func NewHealthChecker(transcriber asr.Transcriber, checkInterval time.Duration, failThreshold int) *HealthChecker {
	return &HealthChecker{
		transcriber:   transcriber,
		checkInterval: checkInterval,
		failThreshold: failThreshold,
		stopChan:      make(chan struct{}),
		status: &ServiceStatus{
			IsHealthy:     true,
			LastCheckTime: time.Now(),
		},
	}
}

// Start runs the check loop until Stop is called or ctx is cancelled.
// An immediate check happens on startup. Does not block the caller when
// launched in its own goroutine.
func (hc *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	hc.performCheck(ctx)

	for {
		select {
		case <-ticker.C:
			hc.performCheck(ctx)
		case <-hc.stopChan:
			log.Printf("[INFO] HealthChecker: Stopped for %s", hc.transcriber.Name())
			return
		case <-ctx.Done():
			log.Printf("[INFO] HealthChecker: Context cancelled for %s", hc.transcriber.Name())
			return
		}
	}
}

// performCheck executes one probe and updates the status and counters.
func (hc *HealthChecker) performCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	isHealthy, err := hc.transcriber.HealthCheck(checkCtx)

	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.status.LastCheckTime = time.Now()

	if isHealthy {
		hc.status.IsHealthy = true
		hc.status.ConsecutiveFails = 0
		hc.status.ErrorMessage = ""
		return
	}

	hc.status.ConsecutiveFails++
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	hc.status.ErrorMessage = fmt.Sprintf("Health check failed: %s", errMsg)

	if hc.status.ConsecutiveFails >= hc.failThreshold {
		hc.status.IsHealthy = false
		log.Printf("[ERROR] HealthChecker: Health check failed %d times for %s, marking as unhealthy",
			hc.status.ConsecutiveFails, hc.transcriber.Name())
	} else {
		log.Printf("[WARN] HealthChecker: Health check failed (%d/%d) for %s: %s",
			hc.status.ConsecutiveFails, hc.failThreshold, hc.transcriber.Name(), errMsg)
	}
}

// GetStatus returns a copy of the current status.
func (hc *HealthChecker) GetStatus() ServiceStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return *hc.status
}

// Stop terminates the check loop. Safe to call multiple times.
func (hc *HealthChecker) Stop() {
	select {
	case <-hc.stopChan:
	default:
		close(hc.stopChan)
	}
}
