package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/config"
)

// NewHandler serves POST /stripe/webhook. Bodies over maxBytes are
// rejected; a non-positive maxBytes selects config.DefaultWebhookMaxPayload.
func NewHandler(rec *Reconciler, maxBytes int64) http.Handler {
	if maxBytes <= 0 {
		maxBytes = config.DefaultWebhookMaxPayload
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := rec.precheck(r.Header.Get(SignatureHeader)); err != nil {
			types.WriteError(w, toAPIError(r, err))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
		if err != nil {
			types.WriteError(w, types.NewValidationError("Invalid event data: request body too large or unreadable", ""))
			return
		}

		if _, err := rec.Handle(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
			types.WriteError(w, toAPIError(r, err))
			return
		}

		types.WriteJSON(w, http.StatusOK, types.StatusResponse{Status: "success"})
	})
}

func toAPIError(r *http.Request, err error) *types.APIError {
	switch {
	case errors.Is(err, ErrMissingSignature):
		apiErr := types.NewAuthenticationError("Missing webhook signature")
		apiErr.Hint = "Configure the billing webhook secret"
		return apiErr
	case errors.Is(err, ErrInvalidSignature):
		apiErr := types.NewAuthenticationError("Invalid webhook signature")
		apiErr.Hint = "Signature verification failed"
		return apiErr
	case errors.Is(err, ErrInvalidEvent):
		detail := strings.TrimPrefix(err.Error(), ErrInvalidEvent.Error()+": ")
		return types.NewValidationError("Invalid event data: "+detail, "")
	}

	slog.ErrorContext(r.Context(), "billing webhook failed", "component", "billing", "error", err)
	return types.NewInternalError()
}
