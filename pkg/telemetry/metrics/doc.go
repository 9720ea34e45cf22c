// Package metrics provides Prometheus metrics collection for the BlueTrace
// gateway.
//
// # Metrics Categories
//
//   - Request Metrics: request count, latency, response size, in-flight
//   - Auth Metrics: rejected API keys by reason
//   - Webhook Metrics: billing events by kind and outcome
//   - Usage Metrics: usage recorder results, queue depth, retention
//
// Rate limit decisions are registered by pkg/limits on the same registry.
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	limitMetrics := limits.NewMetrics(collector.Registry())
//
//	collector.RecordRequest("GET /v1/tides", "GET", 200, 12*time.Millisecond, 2048)
//	collector.RecordAuthFailure("revoked")
//
//	mux.Handle("GET /metrics", collector.Handler())
//
// # Cardinality
//
// Route labels come from registered route patterns. A CardinalityLimiter
// folds any label beyond its limit into "other".
//
// # Disabled Collection
//
// When metrics are disabled in config every Record method is a no-op. A nil
// *Collector is also valid and records nothing.
package metrics
