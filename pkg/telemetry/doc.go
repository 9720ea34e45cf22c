// Package telemetry provides observability for the BlueTrace gateway.
//
// # Components
//
//   - logging: slog setup with request-scoped fields and credential redaction
//   - metrics: Prometheus collectors for requests, auth, webhooks and usage
//   - health: liveness, readiness and the public /v1/health summary
//
// # Usage
//
//	logger, err := logging.Setup(logging.ConfigFrom(cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck(health.CheckDatabase, db.Ping)
//
// # Redaction
//
// With redact_keys enabled, string attributes are masked before they are
// written: issued keys keep their public prefix (bt_sk_Ab3-x_9Q.***) and
// webhook secrets, billing keys, bearer tokens and passwords are replaced.
package telemetry
