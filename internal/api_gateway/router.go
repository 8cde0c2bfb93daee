package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/creditx/hold-service/internal/api_gateway/handler"
	"github.com/creditx/hold-service/internal/api_gateway/middleware"
	"github.com/creditx/hold-service/internal/platform/metrics"
)

// setupRouter configures API routes and middleware for the application.
// Tracing runs first so every later middleware sees the request span.
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	serviceName string,
	holdHandler *handler.HoldHandler,
) {
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Metrics())

	v1 := r.Group("/api/v1")
	{
		holds := v1.Group("/holds")
		{
			holds.POST("", holdHandler.Create)
			holds.GET("/:id", holdHandler.GetByID)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
