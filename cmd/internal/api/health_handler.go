package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator/degradation"
	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator/health"
)

// HandleHealth 服务健康状态，含 ASR 探活结果与当前降级状态
// GET /api/v1/health
func HandleHealth(hc *health.HealthChecker, dc *degradation.DegradationController, diarizerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := hc.GetStatus()

		code := http.StatusOK
		overall := "ok"
		if dc.IsDegraded() {
			overall = "degraded"
		}

		c.JSON(code, gin.H{
			"status": overall,
			"asr": gin.H{
				"healthy":           status.IsHealthy,
				"consecutive_fails": status.ConsecutiveFails,
				"last_check_time":   status.LastCheckTime,
				"degraded":          dc.IsDegraded(),
				"active":            dc.GetTranscriber().Name(),
			},
			"diarization": gin.H{
				"engine": diarizerName,
			},
		})
	}
}
