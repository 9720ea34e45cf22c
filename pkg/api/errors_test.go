package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/security/auth"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"api error", types.NewValidationError("Invalid datetime format", ""), http.StatusBadRequest, types.CodeValidation},
		{"wrapped api error", fmt.Errorf("parse: %w", types.NewNotFoundError("Tile not found: 1/2/3", "")), http.StatusNotFound, types.CodeNotFound},
		{"invalid key", auth.ErrInvalidKey, http.StatusUnauthorized, types.CodeAuthentication},
		{"not found", fmt.Errorf("lookup: %w", keystore.ErrNotFound), http.StatusNotFound, types.CodeNotFound},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, types.CodeTimeout},
		{"body too large", &http.MaxBytesError{Limit: 10}, http.StatusBadRequest, types.CodeValidation},
		{"unknown", errors.New("pq: relation does not exist"), http.StatusInternalServerError, types.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/tides", nil)
			w := httptest.NewRecorder()

			HandleError(w, req, tt.err)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var resp types.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, resp.Error.Code)
			}
			if tt.expectedCode == types.CodeInternal && resp.Error.Message != types.InternalErrorMessage {
				t.Errorf("expected generic message, got %q", resp.Error.Message)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	ok := Wrap(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
	failing := Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return types.NewValidationError("bad", "")
	})

	w := httptest.NewRecorder()
	ok.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	failing.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
