package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recovery turns a handler panic into a 500 in the hold API envelope. The panic
// is logged with its stack, recorded on the request span and counted.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			route := routeLabel(c)
			correlationID := GetCorrelationID(c)
			logger.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"route", route,
				"correlation_id", correlationID,
			)

			span := trace.SpanFromContext(c.Request.Context())
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			httpPanics.WithLabelValues(route).Inc()

			response := gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": "An internal server error occurred",
				},
			}
			if correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response)
		}()

		c.Next()
	}
}
