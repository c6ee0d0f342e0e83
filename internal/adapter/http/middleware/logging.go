package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoapi/internal/adapter/logger"
	"todoapi/pkg/tracing"
)

// LoggingMiddleware writes one access log line per request. Errors attached
// with c.Error are logged alongside and raise the line to error level.
func LoggingMiddleware(lokiLogger *logger.LokiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", GetCurrent(c).RequestID),
		}

		ctx := c.Request.Context()

		if traceID := tracing.GetTraceID(ctx); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}

		switch {
		case len(c.Errors) > 0:
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
			lokiLogger.Error(ctx, "HTTP Request", fields...)
		case status >= 500:
			lokiLogger.Error(ctx, "HTTP Request", fields...)
		case status >= 400:
			lokiLogger.Warn(ctx, "HTTP Request", fields...)
		default:
			lokiLogger.Info(ctx, "HTTP Request", fields...)
		}
	}
}
