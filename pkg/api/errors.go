package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/security/auth"
)

// HandlerFunc is an HTTP handler that reports failure by returning an error.
// Wrap converts it to an http.Handler that writes the error envelope.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts h so returned errors are written by HandleError.
func Wrap(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			HandleError(w, r, err)
		}
	})
}

// HandleError converts err to the JSON error envelope and writes it.
//
// Mapping:
//   - *types.APIError: written unchanged
//   - auth.ErrInvalidKey: 401 AUTHENTICATION_ERROR
//   - keystore.ErrNotFound: 404 NOT_FOUND
//   - context.DeadlineExceeded: 504 TIMEOUT
//   - anything else: logged, then 500 INTERNAL_ERROR with a generic message
//
// Example usage:
//
//	rows, err := repo.Tides(ctx, q)
//	if err != nil {
//	    api.HandleError(w, r, err)
//	    return
//	}
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	types.WriteError(w, ToAPIError(r.Context(), err))
}

// ToAPIError maps err to an *APIError, logging failures that become 500s.
func ToAPIError(ctx context.Context, err error) *types.APIError {
	var apiErr *types.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, auth.ErrInvalidKey):
		return types.NewAuthenticationError("Invalid or missing API key")
	case errors.Is(err, keystore.ErrNotFound):
		return types.NewNotFoundError("Resource not found", "")
	case errors.Is(err, context.DeadlineExceeded):
		slog.WarnContext(ctx, "request deadline exceeded", "error", err)
		return types.NewTimeoutError()
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return types.NewValidationError("Request body too large", "Send at most the configured maximum body size")
	}

	slog.ErrorContext(ctx, "unhandled error", "error", err)
	return types.NewInternalError()
}
