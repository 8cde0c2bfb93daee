package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// status is left out to keep the histogram small
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	httpPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_panics_recovered_total",
			Help: "Handler panics caught by the recovery middleware.",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests, httpLatency, httpInflight, httpPanics)
}

// Metrics instruments requests with Prometheus. The path label is the matched
// route template, or "unmatched" so unknown URLs cannot grow the series set.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := routeLabel(c)
		method := c.Request.Method

		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unmatched"
}
