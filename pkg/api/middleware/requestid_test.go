package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bluetrace-hq/gateway/pkg/telemetry/logging"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		incoming   string
		expectKeep bool
	}{
		{"generates when absent", "", false},
		{"keeps client id", "custom-request-id-12345", true},
		{"replaces id with spaces", "bad id", false},
		{"replaces oversized id", strings.Repeat("a", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/tides", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("expected request id header")
			}
			if got != seen {
				t.Errorf("expected context id %q to match header %q", seen, got)
			}
			if tt.expectKeep && got != tt.incoming {
				t.Errorf("expected %q, got %q", tt.incoming, got)
			}
			if !tt.expectKeep && got == tt.incoming {
				t.Errorf("expected a generated id, got %q", got)
			}
		})
	}
}

func TestRequestID_Unique(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get(RequestIDHeader)
		if ids[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		ids[id] = true
	}
}
