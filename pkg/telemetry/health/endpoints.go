package health

import (
	"encoding/json"
	"net/http"
)

// Names of the dependency checks reported by the service summary.
const (
	CheckDatabase = "database"
	CheckRedis    = "redis"
)

// Summary is the body of the service health endpoint.
type Summary struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Service  string `json:"service"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// dependencyState renders a check result as "connected" or "error: ...".
// Dependencies without a registered check report "disabled".
func dependencyState(results Results, name string) string {
	result, ok := results[name]
	if !ok {
		return "disabled"
	}
	if result.Healthy() {
		return "connected"
	}
	return "error: " + result.Message
}

// SummaryHandler returns the service health endpoint handler. It always
// responds 200; a failed dependency makes the status "degraded".
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "version": "0.1.0",
//	    "service": "BlueTrace API",
//	    "database": "connected",
//	    "redis": "connected"
//	}
func (c *Checker) SummaryHandler(service, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := c.RunChecks(r.Context())

		status := StatusOK
		if !results.Healthy() {
			status = StatusDegraded
		}

		writeJSON(w, r, http.StatusOK, Summary{
			Status:   status,
			Version:  version,
			Service:  service,
			Database: dependencyState(results, CheckDatabase),
			Redis:    dependencyState(results, CheckRedis),
		})
	}
}

// LivenessHandler returns an HTTP handler for the liveness probe endpoint.
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "timestamp": "2026-03-01T10:30:00Z"
//	}
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns an HTTP handler for the readiness probe endpoint.
//
// Returns:
//   - 200 OK: all dependency checks passed
//   - 503 Service Unavailable: at least one check failed
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "database": {"status": "ok", "duration_ms": 412000},
//	        "redis": {"status": "unhealthy", "message": "dial tcp: connection refused"}
//	    },
//	    "timestamp": "2026-03-01T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.CheckReadiness(r.Context())

		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
