package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"brandscope-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		runID, _ := c.Get("runId")
		promptID, _ := c.Get("promptId")
		step := ""
		if raw, ok := c.Get("workflowStep"); ok {
			if s, ok := raw.(string); ok {
				step = s
			}
		}

		telemetry.Info("request.complete", map[string]any{
			"request_id":  reqID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"step":        step,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"run_id":      runID,
			"prompt_id":   promptID,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
