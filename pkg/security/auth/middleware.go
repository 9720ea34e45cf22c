package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/telemetry/logging"
)

// DefaultHeader carries the credential on protected requests.
const DefaultHeader = "X-Api-Key"

// Middleware authenticates requests from a single header and stores the
// matched key in the request context.
type Middleware struct {
	auth   *Authenticator
	header string
}

// NewMiddleware creates authentication middleware reading header.
// An empty header selects DefaultHeader.
func NewMiddleware(auth *Authenticator, header string) *Middleware {
	if header == "" {
		header = DefaultHeader
	}
	return &Middleware{auth: auth, header: header}
}

// Handle wraps next with API key authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := m.auth.Authenticate(r.Context(), r.Header.Get(m.header))
		if err != nil {
			if errors.Is(err, ErrInvalidKey) {
				apiErr := types.NewAuthenticationError("Invalid or missing API key")
				apiErr.Hint = "Include a valid " + m.header + " header"
				types.WriteError(w, apiErr)
				return
			}
			slog.ErrorContext(r.Context(), "key store unavailable during authentication",
				"component", "auth",
				"error", err,
				"path", r.URL.Path,
			)
			types.WriteError(w, types.NewInternalError())
			return
		}

		ctx := WithAPIKey(r.Context(), key)
		ctx = logging.WithKeyPrefix(ctx, key.Prefix)
		ctx = logging.WithPlan(ctx, string(key.Plan))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose authenticated key does not belong to
// adminEmail. It must run after Middleware.Handle.
func RequireAdmin(adminEmail func() string, failures FailureRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := GetAPIKey(r.Context())
			if !ok || !IsAdmin(key, adminEmail()) {
				slog.WarnContext(r.Context(), "authentication failed",
					"component", "auth",
					"reason", ReasonNotAdmin,
					"path", r.URL.Path,
				)
				if failures != nil {
					failures.RecordAuthFailure(ReasonNotAdmin)
				}
				apiErr := types.NewAuthenticationError("Admin access required")
				apiErr.Hint = "This endpoint requires administrator privileges"
				types.WriteError(w, apiErr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const apiKeyContextKey contextKey = "api_key_record"

// WithAPIKey stores the authenticated key record in ctx.
func WithAPIKey(ctx context.Context, key *keystore.APIKey) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, key)
}

// GetAPIKey retrieves the authenticated key record from ctx.
func GetAPIKey(ctx context.Context) (*keystore.APIKey, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(*keystore.APIKey)
	return key, ok && key != nil
}
