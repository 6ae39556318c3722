package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request. Handlers may set "sessionId",
// "requirementId" or "submissionId" in context to have them logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if agent := AgentEmailFromContext(c); agent != "" {
			fields["agent"] = agent
		}
		for key, field := range map[string]string{
			"sessionId":     "session_id",
			"requirementId": "requirement_id",
			"submissionId":  "submission_id",
		} {
			if v := contextString(c, key); v != "" {
				fields[field] = v
			}
		}
		telemetry.Info("request.complete", fields)
	}
}
