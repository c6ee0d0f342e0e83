package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"todoapi/internal/core/telemetry"
)

const unmatchedRoute = "unmatched"

// MetricsMiddleware labels requests by route template so ids do not blow up
// the series count.
func MetricsMiddleware(metrics *telemetry.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.IncrementActiveConnections(ctx)
		defer metrics.DecrementActiveConnections(ctx)

		c.Next()

		route := c.FullPath()

		if route == "" {
			route = unmatchedRoute
		}

		metrics.RecordRequest(ctx, c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
