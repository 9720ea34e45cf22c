package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuthMetrics tracks API key authentication failures.
//
// Metrics:
//   - bluetrace_auth_failures_total: failures by reason (missing, unknown,
//     revoked, not_admin)
type AuthMetrics struct {
	failures *prometheus.CounterVec
}

// NewAuthMetrics creates and registers auth metrics.
func NewAuthMetrics(registry prometheus.Registerer) *AuthMetrics {
	am := &AuthMetrics{
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "auth",
				Name:      "failures_total",
				Help:      "Total number of rejected API keys by reason",
			},
			[]string{"reason"},
		),
	}
	registry.MustRegister(am.failures)
	return am
}

// RecordFailure records one rejected credential.
func (am *AuthMetrics) RecordFailure(reason string) {
	am.failures.WithLabelValues(reason).Inc()
}
