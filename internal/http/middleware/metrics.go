package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"dronequote/internal/metrics"
)

// Metrics records one observation per request, labelled by the matched route
// template so ids don't explode cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
