package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	// RequestIDHeader is accepted when no correlation id is sent
	RequestIDHeader = "X-Request-ID"

	// CorrelationIDKey is the gin context key and the span attribute name
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

// CorrelationID gives each request an identifier. A caller supplied id is reused
// when it is short printable ASCII, otherwise a UUID is generated. The id is
// echoed back and set on the active span.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = c.GetHeader(RequestIDHeader)
		}
		if !validCorrelationID(correlationID) {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)
		trace.SpanFromContext(c.Request.Context()).SetAttributes(attribute.String(CorrelationIDKey, correlationID))

		c.Next()
	}
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetCorrelationID returns the request's correlation id, or "" outside the middleware
func GetCorrelationID(c *gin.Context) string {
	id, _ := c.Get(CorrelationIDKey)
	correlationID, _ := id.(string)
	return correlationID
}
