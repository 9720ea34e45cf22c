// Package health provides dependency health checks and the probe endpoints
// of the BlueTrace gateway.
//
// # Endpoints
//
//   - /v1/health: service summary with database and redis state; always 200
//   - /health/live: liveness probe, runs no checks
//   - /health/ready: readiness probe, 503 when any check fails
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck(health.CheckDatabase, db.Ping)
//	checker.RegisterCheck(health.CheckRedis, backend.Ping)
//
//	mux.Handle("GET /v1/health", checker.SummaryHandler("BlueTrace API", version))
//	mux.Handle("GET /health/live", checker.LivenessHandler())
//	mux.Handle("GET /health/ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker's timeout; a check
// that ignores its context is abandoned when the timeout fires.
package health
