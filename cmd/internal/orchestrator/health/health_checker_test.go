package health

import (
	"context"
	"testing"
	"time"

	"github.com/houzhh15/meetscribe/cmd/internal/asr"
)

// stubTranscriber is a controllable transcriber for health testing.
type stubTranscriber struct {
	healthy bool
}

func (s *stubTranscriber) Transcribe(ctx context.Context, samples []float64, sampleRate int, options *asr.Options) (*asr.Result, error) {
	return &asr.Result{}, nil
}

func (s *stubTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return s.healthy, nil
}

func (s *stubTranscriber) Name() string {
	return "stub-health-test"
}

// TestHealthChecker tests the health checking functionality.
func TestHealthChecker(t *testing.T) {
	t.Run("initial state is healthy", func(t *testing.T) {
		stub := &stubTranscriber{healthy: true}
		checker := NewHealthChecker(stub, 1*time.Second, 3)

		status := checker.GetStatus()

		if !status.IsHealthy {
			t.Error("Initial state should be healthy")
		}

		if status.ConsecutiveFails != 0 {
			t.Errorf("ConsecutiveFails = %d, want 0", status.ConsecutiveFails)
		}
	})

	t.Run("unhealthy only after threshold", func(t *testing.T) {
		stub := &stubTranscriber{healthy: false}
		checker := NewHealthChecker(stub, 1*time.Second, 3)

		ctx := context.Background()
		checker.performCheck(ctx)
		checker.performCheck(ctx)

		if status := checker.GetStatus(); !status.IsHealthy {
			t.Error("should stay healthy below the failure threshold")
		}

		checker.performCheck(ctx)

		status := checker.GetStatus()
		if status.IsHealthy {
			t.Error("should be unhealthy after 3 consecutive failures")
		}
		if status.ConsecutiveFails != 3 {
			t.Errorf("ConsecutiveFails = %d, want 3", status.ConsecutiveFails)
		}
		if status.ErrorMessage == "" {
			t.Error("ErrorMessage should be set after failures")
		}
	})

	t.Run("success resets failure counter", func(t *testing.T) {
		stub := &stubTranscriber{healthy: false}
		checker := NewHealthChecker(stub, 1*time.Second, 2)

		ctx := context.Background()
		checker.performCheck(ctx)
		checker.performCheck(ctx)

		if checker.GetStatus().IsHealthy {
			t.Fatal("precondition: should be unhealthy")
		}

		stub.healthy = true
		checker.performCheck(ctx)

		status := checker.GetStatus()
		if !status.IsHealthy {
			t.Error("should recover after a successful check")
		}
		if status.ConsecutiveFails != 0 {
			t.Errorf("ConsecutiveFails = %d, want 0 after recovery", status.ConsecutiveFails)
		}
		if status.ErrorMessage != "" {
			t.Errorf("ErrorMessage = %q, want empty after recovery", status.ErrorMessage)
		}
	})

	t.Run("stop can be called multiple times", func(t *testing.T) {
		stub := &stubTranscriber{healthy: true}
		checker := NewHealthChecker(stub, 1*time.Second, 3)

		checker.Stop()
		checker.Stop()
		checker.Stop()
	})
}

// TestNewHealthChecker tests the constructor.
func TestNewHealthChecker(t *testing.T) {
	stub := &stubTranscriber{healthy: true}
	checker := NewHealthChecker(stub, 5*time.Minute, 3)

	if checker == nil {
		t.Fatal("NewHealthChecker returned nil")
	}

	status := checker.GetStatus()
	if !status.IsHealthy {
		t.Error("Initial status should be healthy")
	}
}
