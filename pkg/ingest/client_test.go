package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestClient_GetJSON(t *testing.T) {
	tests := []struct {
		name             string
		failures         int
		failStatus       int
		expectedAttempts int32
		expectedStatus   int
	}{
		{"first attempt succeeds", 0, 0, 1, 0},
		{"recovers after server errors", 2, http.StatusInternalServerError, 3, 0},
		{"retries rate limiting", 1, http.StatusTooManyRequests, 2, 0},
		{"gives up after max attempts", 5, http.StatusServiceUnavailable, 3, http.StatusServiceUnavailable},
		{"client error is not retried", 5, http.StatusNotFound, 1, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := attempts.Add(1)
				if int(n) <= tt.failures {
					http.Error(w, "upstream unavailable", tt.failStatus)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"data":[{"t":"2026-03-01 00:00","v":"1.5"}]}`))
			}))
			defer srv.Close()

			client := NewClient(time.Second, fastRetry)
			var resp NOAAResponse
			err := client.GetJSON(context.Background(), srv.URL, url.Values{"station": {"1"}}, &resp)

			if got := attempts.Load(); got != tt.expectedAttempts {
				t.Errorf("expected %d attempts, got %d", tt.expectedAttempts, got)
			}

			if tt.expectedStatus == 0 {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if len(resp.Data) != 1 || resp.Data[0].V != "1.5" {
					t.Errorf("expected decoded observation, got %+v", resp.Data)
				}
				return
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.StatusCode != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, statusErr.StatusCode)
			}
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var resp NOAAResponse
	err := NewClient(time.Second, fastRetry).GetJSON(context.Background(), srv.URL, nil, &resp)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("expected decode failure to not be retried, got %d attempts", got)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var resp NOAAResponse
	err := NewClient(time.Second, fastRetry).GetJSON(ctx, srv.URL, nil, &resp)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
