package middleware

import (
	"time"

	"tunman/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP request metrics middleware
 * @description
 * - Counts requests per handler path and records handling duration
 * - Requests answered with status >= 400 are additionally counted as errors
 * - Feeds the counters exposed on /metrics and in the healthz payload
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		handler := c.FullPath()
		if handler == "" {
			handler = "unknown"
		}

		services.IncrementRequestCount(handler)
		services.RecordRequestDuration(handler, duration)

		if c.Writer.Status() >= 400 {
			services.IncrementErrorCount(handler)
		}
	}
}
