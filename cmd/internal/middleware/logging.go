package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/houzhh15/meetscribe/pkg/logger"
)

// RequestLogger 注入 request_id 并记录结构化访问日志
// Prometheus 抓取路径不记录，避免周期性刷屏
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)

		c.Next()

		if c.Request.URL.Path == "/metrics" {
			return
		}

		attrs := []any{
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		// 音频上传可达数百 MB，记录请求体大小便于排查慢请求
		if size := c.Request.ContentLength; size > 0 {
			attrs = append(attrs, "request_bytes", size)
		}
		logger.L().Info("request_completed", attrs...)
	}
}
