// Package server assembles the BlueTrace HTTP API.
//
// New registers every endpoint on a method-aware ServeMux and wraps it in
// the global middleware chain:
//
//	GET    /                          service banner
//	GET    /v1/health                 dependency summary (always 200)
//	GET    /health/live               liveness
//	GET    /health/ready              readiness (503 when a check fails)
//	GET    /metrics                   Prometheus exposition
//	POST   /stripe/webhook            billing events, signature verified
//	POST   /v1/admin/keys             issue a key (admin only)
//	GET    /v1/admin/keys             list keys (admin only)
//	DELETE /v1/admin/keys/{id}        revoke a key (admin only)
//	GET    /v1/tides, /v1/sst, /v1/currents, /v1/turbidity
//	GET    /v1/bathy/tiles/{z}/{x}/{y}.png
//
// Dataset endpoints require an API key and are metered and rate limited
// by the key's plan.
//
// # Lifecycle
//
//	srv, err := server.New(cfg, server.Dependencies{...})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // returns after ctx is cancelled and shutdown completes
package server
