package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcilerMetrics records submission outcomes and record-store call latency.
type ReconcilerMetrics struct {
	outcomes        *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendFailures *prometheus.CounterVec
}

// NewReconcilerMetrics registers the reconciler metrics on the provided registerer.
func NewReconcilerMetrics(reg prometheus.Registerer) *ReconcilerMetrics {
	if reg == nil {
		return &ReconcilerMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_reconciliation_outcomes_total",
		Help: "Order submissions by reconciliation outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "record_store_call_duration_seconds",
		Help:    "Duration of record store calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "record_store_call_failures_total",
		Help: "Failed record store calls.",
	}, []string{"operation"})
	reg.MustRegister(outcomes, duration, failures)
	return &ReconcilerMetrics{
		outcomes:        outcomes,
		backendDuration: duration,
		backendFailures: failures,
	}
}

// IncOutcome increments the counter for a reconciliation outcome.
func (m *ReconcilerMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveBackendCall records duration for the named record store operation.
func (m *ReconcilerMetrics) ObserveBackendCall(operation string, duration time.Duration) {
	if m == nil || m.backendDuration == nil {
		return
	}
	m.backendDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncBackendFailure increments the failure counter for the named operation.
func (m *ReconcilerMetrics) IncBackendFailure(operation string) {
	if m == nil || m.backendFailures == nil {
		return
	}
	m.backendFailures.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
