package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/limits"
	"bluetrace-hq/gateway/pkg/security/auth"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// RateLimit admits authenticated requests against their plan's sliding
// window. It must run after auth.Middleware.Handle.
//
// Every response carries X-RateLimit-Limit and X-RateLimit-Remaining;
// rejected requests get 429 RATE_LIMIT_EXCEEDED.
//
// Example:
//
//	handler := authMiddleware.Handle(RateLimit(manager)(next))
func RateLimit(manager *limits.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := auth.GetAPIKey(r.Context())
			if !ok {
				slog.ErrorContext(r.Context(), "rate limit middleware reached without an authenticated key",
					"path", r.URL.Path,
				)
				types.WriteError(w, types.NewInternalError())
				return
			}

			if info := GetRequestInfo(r.Context()); info != nil {
				info.KeyPrefix = key.Prefix
				info.Plan = string(key.Plan)
			}

			decision := manager.Check(r.Context(), key)
			setLimitHeaders(w, decision)

			if !decision.Allowed {
				slog.WarnContext(r.Context(), "rate limit exceeded",
					"plan", decision.Plan,
					"limit", decision.Limit.Requests,
					"window_s", decision.Limit.WindowSeconds(),
					"degraded", decision.Degraded,
				)
				types.WriteError(w, types.NewRateLimitError(
					decision.Plan,
					decision.Limit.Requests,
					decision.Limit.WindowSeconds(),
					decision.Remaining,
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setLimitHeaders sets the rate limit headers on the response.
func setLimitHeaders(w http.ResponseWriter, d limits.Decision) {
	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit.Requests))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
}
