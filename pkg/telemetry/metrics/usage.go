package metrics

import "github.com/prometheus/client_golang/prometheus"

// UsageMetrics tracks the asynchronous usage recorder.
//
// Metrics:
//   - bluetrace_usage_events_total: events by result (recorded, dropped, failed)
//   - bluetrace_usage_queue_depth: events waiting to be written
//   - bluetrace_usage_pruned_total: rows removed by retention
type UsageMetrics struct {
	events     *prometheus.CounterVec
	queueDepth prometheus.Gauge
	pruned     prometheus.Counter
}

// NewUsageMetrics creates and registers usage metrics.
func NewUsageMetrics(registry prometheus.Registerer) *UsageMetrics {
	um := &UsageMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "usage",
				Name:      "events_total",
				Help:      "Total number of usage events by result",
			},
			[]string{"result"},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "usage",
				Name:      "queue_depth",
				Help:      "Number of usage events waiting to be written",
			},
		),

		pruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "usage",
				Name:      "pruned_total",
				Help:      "Total number of usage events removed by retention",
			},
		),
	}

	registry.MustRegister(um.events, um.queueDepth, um.pruned)
	return um
}

// RecordEvent records the fate of one usage event.
func (um *UsageMetrics) RecordEvent(result string) {
	um.events.WithLabelValues(result).Inc()
}

// UpdateQueueDepth sets the queue depth gauge.
func (um *UsageMetrics) UpdateQueueDepth(depth int) {
	um.queueDepth.Set(float64(depth))
}

// RecordPruned adds rows removed by a retention run.
func (um *UsageMetrics) RecordPruned(rows int64) {
	if rows > 0 {
		um.pruned.Add(float64(rows))
	}
}
