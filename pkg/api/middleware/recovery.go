package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"bluetrace-hq/gateway/pkg/api/types"
)

// Recovery recovers from panics in HTTP handlers and returns the generic
// INTERNAL_ERROR envelope. The panic and stack are logged; nothing about
// them reaches the client.
//
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
//
// Example usage:
//
//	handler = Recovery(handler)
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			types.WriteError(w, types.NewInternalError())
		}()

		next.ServeHTTP(w, r)
	})
}
