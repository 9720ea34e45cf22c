package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const requestInfoKey contextKey = "request_info"

// RequestInfo collects facts about a request that are only known deeper in
// the handler chain, so outer middleware can log and measure them after the
// handler returns.
type RequestInfo struct {
	// Route is the matched mux pattern, e.g. "GET /v1/tides".
	Route string

	// KeyPrefix is the public prefix of the authenticated key.
	KeyPrefix string

	// Plan is the plan tier of the authenticated key.
	Plan string
}

// GetRequestInfo returns the request's info holder, or nil outside the
// middleware chain.
func GetRequestInfo(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestInfoKey).(*RequestInfo)
	return info
}

// withRequestInfo returns r carrying an info holder, reusing an existing one.
func withRequestInfo(r *http.Request) (*http.Request, *RequestInfo) {
	if info := GetRequestInfo(r.Context()); info != nil {
		return r, info
	}
	info := &RequestInfo{}
	return r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)), info
}

// Route records the matched mux pattern. Register it around every handler
// on the mux: r.Pattern is only set on the request the mux dispatches.
func Route(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info := GetRequestInfo(r.Context()); info != nil {
			info.Route = r.Pattern
		}
		next.ServeHTTP(w, r)
	})
}
