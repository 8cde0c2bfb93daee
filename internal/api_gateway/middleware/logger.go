package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// Logger middleware logs one line per request. 4xx responses log at warn and
// 5xx at error. The correlation and trace ids are attached when present.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		requestLogger := logger
		if correlationID := GetCorrelationID(c); correlationID != "" {
			requestLogger = requestLogger.With("correlation_id", correlationID)
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			requestLogger = requestLogger.With("trace_id", sc.TraceID().String())
		}

		if raw != "" {
			path = path + "?" + raw
		}

		statusCode := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case statusCode >= 500:
			level = slog.LevelError
		case statusCode >= 400:
			level = slog.LevelWarn
		}

		requestLogger.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", statusCode,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}
