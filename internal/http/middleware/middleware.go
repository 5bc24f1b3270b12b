package middleware

import (
	"strconv"
	"time"

	"converzia_backend/platform/metrics"

	"github.com/gin-gonic/gin"
)

// RequestTimer records request latency per route template. Unmatched routes
// share one label so that scanners cannot blow up metric cardinality.
func RequestTimer() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
