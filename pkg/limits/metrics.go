package limits

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for admission checks. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	decisions     *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
	checkDuration prometheus.Histogram
}

// NewMetrics creates the limits metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bluetrace_rate_limit_decisions_total",
				Help: "Total number of rate limit decisions by plan and result",
			},
			[]string{"plan", "result"},
		),

		storeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bluetrace_rate_limit_store_failures_total",
				Help: "Total number of bucket store failures settled by the failure policy",
			},
			[]string{"operation", "decision"},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bluetrace_rate_limit_check_duration_seconds",
				Help:    "Duration of rate limit checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~800ms
			},
		),
	}
}

// RecordDecision records one admission decision.
func (m *Metrics) RecordDecision(plan string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	m.decisions.WithLabelValues(plan, result).Inc()
}

// RecordCheckDuration records how long a check took.
func (m *Metrics) RecordCheckDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.checkDuration.Observe(d.Seconds())
}

// ObserveStoreFailure implements ratelimit.Observer.
func (m *Metrics) ObserveStoreFailure(operation string, admitted bool) {
	if m == nil {
		return
	}
	decision := "fail_open"
	if !admitted {
		decision = "fail_closed"
	}
	m.storeFailures.WithLabelValues(operation, decision).Inc()
}
