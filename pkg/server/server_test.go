package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bluetrace-hq/gateway/pkg/api/handlers"
	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/billing"
	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/database"
	"bluetrace-hq/gateway/pkg/datasets"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/limits/ratelimit"
	"bluetrace-hq/gateway/pkg/limits/storage"
	"bluetrace-hq/gateway/pkg/security/auth"
	"bluetrace-hq/gateway/pkg/telemetry/health"
	"bluetrace-hq/gateway/pkg/usage"
)

const (
	testSalt   = "server-test-salt"
	testSecret = "whsec_server_test"
	adminEmail = "admin@bluetrace.dev"
	tidesQuery = "/v1/tides?station_id=8454000&start=2026-03-01&end=2026-03-02"
)

type testEnv struct {
	server *Server
	http   *httptest.Server
	cfg    *config.Config
	keys   *keystore.MemoryStore
	usage  *usage.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg := config.NewDefault()
	cfg.Security.APIKeySalt = testSalt
	cfg.Billing.WebhookSecret = testSecret
	cfg.Billing.Products = map[string]string{"prod_pro": config.PlanPro}
	cfg.Admin.Email = adminEmail

	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "server.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	limiter := ratelimit.NewSlidingWindowLimiter(storage.NewMemoryBackend(), ratelimit.Config{FailOpen: true}, nil)
	t.Cleanup(func() { limiter.Shutdown(context.Background()) })

	usageStore := usage.NewMemoryStore()
	recorder := usage.NewRecorder(usageStore, usage.RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: time.Second,
	}, nil)

	checker := health.New(time.Second)
	checker.RegisterCheck(health.CheckDatabase, db.Ping)

	keys := keystore.NewMemoryStore()
	srv, err := New(cfg, Dependencies{
		Keys:     keys,
		Datasets: datasets.NewRepository(db, time.Second),
		Limiter:  limiter,
		Recorder: recorder,
		Health:   checker,
		Config:   func() *config.Config { return cfg },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { recorder.Close() })

	return &testEnv{server: srv, http: ts, cfg: cfg, keys: keys, usage: usageStore}
}

// issue creates a key and returns its plaintext.
func (e *testEnv) issue(t *testing.T, email string, plan keystore.Plan) (string, *keystore.APIKey) {
	t.Helper()
	gen, err := auth.GenerateKey(testSalt)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	key := &keystore.APIKey{Name: "test", KeyHash: gen.Hash, Prefix: gen.Prefix, OwnerEmail: email, Plan: plan}
	if err := e.keys.Create(context.Background(), key); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return gen.Plaintext, key
}

func (e *testEnv) do(t *testing.T, method, path, apiKey string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	resp, err := e.http.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) types.ErrorDetail {
	t.Helper()
	var body types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestServer_ProPlanRateLimit(t *testing.T) {
	env := newTestEnv(t)
	key, _ := env.issue(t, "ops@example.com", keystore.PlanPro)

	for i := 1; i <= 300; i++ {
		resp := env.do(t, http.MethodGet, tidesQuery, key, nil)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, resp.StatusCode)
		}
		if i == 300 {
			if got := resp.Header.Get("X-RateLimit-Remaining"); got != "0" {
				t.Errorf("expected remaining 0 on request 300, got %s", got)
			}
		}
	}

	resp := env.do(t, http.MethodGet, tidesQuery, key, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 on request 301, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-RateLimit-Limit"); got != "300" {
		t.Errorf("expected limit header 300, got %s", got)
	}

	detail := decodeError(t, resp)
	if detail.Code != types.CodeRateLimitExceeded {
		t.Errorf("expected code %s, got %s", types.CodeRateLimitExceeded, detail.Code)
	}
	if detail.Message != "Rate limit exceeded for pro plan" {
		t.Errorf("unexpected message %q", detail.Message)
	}
	if detail.Hint != "Limit: 300 requests per 60s. Remaining: 0" {
		t.Errorf("unexpected hint %q", detail.Hint)
	}
}

func TestServer_Authentication(t *testing.T) {
	env := newTestEnv(t)
	valid, _ := env.issue(t, "ops@example.com", keystore.PlanFree)
	revoked, revokedKey := env.issue(t, "ops@example.com", keystore.PlanFree)
	if err := env.keys.Revoke(context.Background(), revokedKey.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	tests := []struct {
		name           string
		key            string
		expectedStatus int
	}{
		{"valid key", valid, http.StatusOK},
		{"missing key", "", http.StatusUnauthorized},
		{"malformed key", "not-a-key", http.StatusUnauthorized},
		{"revoked key", revoked, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, tidesQuery, tt.key, nil)
			if resp.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}
			if tt.expectedStatus == http.StatusOK {
				if resp.Header.Get("X-RateLimit-Limit") != "30" {
					t.Errorf("expected free plan limit header, got %q", resp.Header.Get("X-RateLimit-Limit"))
				}
				return
			}
			if detail := decodeError(t, resp); detail.Code != types.CodeAuthentication {
				t.Errorf("expected code %s, got %s", types.CodeAuthentication, detail.Code)
			}
		})
	}
}

func TestServer_AdminKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.issue(t, adminEmail, keystore.PlanEnterprise)
	user, _ := env.issue(t, "user@example.com", keystore.PlanFree)

	body := []byte(`{"name":"analytics","owner_email":"data@example.com","plan":"pro"}`)

	resp := env.do(t, http.MethodPost, "/v1/admin/keys", user, body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected non-admin to get 401, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/v1/admin/keys", admin, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-RateLimit-Limit"); got != "10000" {
		t.Errorf("expected enterprise limit 10000 on admin response, got %q", got)
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "" {
		t.Error("expected X-RateLimit-Remaining on admin response")
	}
	var created handlers.CreateKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Plan != "pro" || created.Message != handlers.KeyCreatedMessage {
		t.Errorf("unexpected create response: %+v", created)
	}

	resp = env.do(t, http.MethodGet, tidesQuery, created.APIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected new key to work, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-RateLimit-Limit"); got != "300" {
		t.Errorf("expected pro limit 300, got %s", got)
	}

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/keys/%d", created.ID), admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected revoke to succeed, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, tidesQuery, created.APIKey, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected revoked key to get 401, got %d", resp.StatusCode)
	}
}

func TestServer_BillingUpgrade(t *testing.T) {
	env := newTestEnv(t)
	key, record := env.issue(t, "ops@example.com", keystore.PlanFree)
	if err := env.keys.SetCustomerID(context.Background(), record.ID, "cus_123"); err != nil {
		t.Fatalf("SetCustomerID failed: %v", err)
	}

	event := []byte(`{"id":"evt_1","type":"customer.subscription.created","data":{"object":{"id":"sub_1","customer":"cus_123","items":{"data":[{"price":{"product":"prod_pro"}}]}}}}`)
	req, _ := http.NewRequest(http.MethodPost, env.http.URL+"/stripe/webhook", bytes.NewReader(event))
	req.Header.Set(billing.SignatureHeader, "t=1700000000,v1="+billing.ComputeSignature("1700000000", event, testSecret))
	resp, err := env.http.Client().Do(req)
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected webhook status 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, tidesQuery, key, nil)
	if got := resp.Header.Get("X-RateLimit-Limit"); got != "300" {
		t.Errorf("expected upgraded limit 300, got %s", got)
	}

	resp = env.do(t, http.MethodPost, "/stripe/webhook", "", event)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected unsigned webhook to get 401, got %d", resp.StatusCode)
	}
}

func TestServer_PublicEndpoints(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		contains       string
	}{
		{"root", "/", http.StatusOK, `"message":"BlueTrace API"`},
		{"health summary", "/v1/health", http.StatusOK, `"database":"connected"`},
		{"liveness", "/health/live", http.StatusOK, ""},
		{"readiness", "/health/ready", http.StatusOK, ""},
		{"metrics", "/metrics", http.StatusOK, "bluetrace_http_requests_total"},
		{"unknown path", "/v2/nothing", http.StatusNotFound, `"code":"NOT_FOUND"`},
	}

	// Prime the request counter so the metrics body is non-empty.
	env.do(t, http.MethodGet, "/", "", nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, tt.path, "", nil)
			if resp.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
			if tt.contains == "" {
				return
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("expected body to contain %s, got %s", tt.contains, body)
			}
		})
	}
}

func TestServer_UsageMetering(t *testing.T) {
	env := newTestEnv(t)
	key, record := env.issue(t, "ops@example.com", keystore.PlanFree)

	for i := 0; i < 3; i++ {
		resp := env.do(t, http.MethodGet, tidesQuery, key, nil)
		io.Copy(io.Discard, resp.Body)
	}
	env.do(t, http.MethodGet, "/v1/health", "", nil)

	deadline := time.Now().Add(2 * time.Second)
	for len(env.usage.Events()) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	events := env.usage.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 usage events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.APIKeyID != record.ID {
			t.Errorf("expected key %d, got %d", record.ID, ev.APIKeyID)
		}
		if ev.Route != "/v1/tides" || ev.StatusCode != http.StatusOK {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.BytesSent == 0 {
			t.Error("expected response bytes to be metered")
		}
	}
}

func TestServer_StartShutdown(t *testing.T) {
	env := newTestEnv(t)
	env.server.config.ListenAddress = "127.0.0.1:0"
	env.server.config.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.server.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for env.server.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !env.server.IsRunning() {
		t.Fatal("expected server to be running")
	}

	resp, err := http.Get("http://" + env.server.Addr() + "/health/live")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	if env.server.IsRunning() {
		t.Error("expected server to be stopped")
	}
}
