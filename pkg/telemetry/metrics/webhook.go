package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics tracks billing webhook processing.
//
// Metrics:
//   - bluetrace_billing_webhook_events_total: events by kind and outcome
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics creates and registers webhook metrics.
func NewWebhookMetrics(registry prometheus.Registerer) *WebhookMetrics {
	wm := &WebhookMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "billing",
				Name:      "webhook_events_total",
				Help:      "Total number of billing webhook events by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
	registry.MustRegister(wm.events)
	return wm
}

// RecordEvent records one webhook event.
func (wm *WebhookMetrics) RecordEvent(kind, outcome string) {
	wm.events.WithLabelValues(kind, outcome).Inc()
}
