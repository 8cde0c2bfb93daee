// Package metrics holds the Prometheus collectors for hold processing.
// Label values are drawn from closed sets (statuses, event kinds, outcomes)
// so series cardinality stays bounded.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "holds"

// Outcome labels shared by inbound events and outbox publishing
const (
	OutcomeApplied   = "applied"
	OutcomeNoop      = "noop"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeDLQ       = "dlq"
	OutcomePublished = "published"
)

var (
	holdsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Hold creation requests by result (created, replayed, rejected).",
		},
		[]string{"result"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Hold status changes by source and target status.",
		},
		[]string{"from", "to"},
	)

	inboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound transaction events by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	outboxEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events handled by the publisher by event type and outcome.",
		},
		[]string{"event_type", "outcome"},
	)

	expirySweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expiry_sweep_duration_seconds",
			Help:      "Duration of expiry sweeps in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	expiredHolds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_total",
			Help:      "Holds moved to EXPIRED by the expiry scanner.",
		},
	)
)

func init() {
	prometheus.MustRegister(holdsCreated, transitions, inboundEvents, outboxEvents, expirySweepDuration, expiredHolds)
}

func HoldCreated(result string) {
	holdsCreated.WithLabelValues(result).Inc()
}

func Transition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

func InboundEvent(kind, outcome string) {
	inboundEvents.WithLabelValues(kind, outcome).Inc()
}

func OutboxEvent(eventType, outcome string) {
	outboxEvents.WithLabelValues(eventType, outcome).Inc()
}

// ExpirySweep records one completed sweep
func ExpirySweep(d time.Duration, expired int) {
	expirySweepDuration.Observe(d.Seconds())
	expiredHolds.Add(float64(expired))
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
