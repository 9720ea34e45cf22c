package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/security/auth"
)

const testSalt = "test-salt"

func serve(t *testing.T, h *AdminHandler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range h.Routes() {
		mux.Handle(pattern, handler)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestAdminHandler_CreateKey(t *testing.T) {
	store := keystore.NewMemoryStore()
	h := NewAdminHandler(store, testSalt)

	w := serve(t, h, http.MethodPost, "/v1/admin/keys",
		`{"name":"Harbor ops","owner_email":"ops@example.com","plan":"pro"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp CreateKeyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != KeyCreatedMessage {
		t.Errorf("expected message %q, got %q", KeyCreatedMessage, resp.Message)
	}
	if resp.Plan != "pro" {
		t.Errorf("expected plan pro, got %s", resp.Plan)
	}
	if !strings.HasPrefix(resp.APIKey, resp.Prefix+".") {
		t.Errorf("expected api key %q to start with prefix %q", resp.APIKey, resp.Prefix)
	}

	// The stored record carries the digest, never the plaintext.
	stored, err := store.FindActiveByHash(context.Background(), auth.HashKey(testSalt, resp.APIKey))
	if err != nil {
		t.Fatalf("expected key to be findable by digest: %v", err)
	}
	if stored.ID != resp.ID {
		t.Errorf("expected id %d, got %d", resp.ID, stored.ID)
	}
	if stored.KeyHash == resp.APIKey {
		t.Error("plaintext key was stored")
	}
}

func TestAdminHandler_CreateKeyDefaultsToFree(t *testing.T) {
	h := NewAdminHandler(keystore.NewMemoryStore(), testSalt)

	w := serve(t, h, http.MethodPost, "/v1/admin/keys", `{"name":"n","owner_email":"a@b.io"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var resp CreateKeyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Plan != "free" {
		t.Errorf("expected plan free, got %s", resp.Plan)
	}
}

func TestAdminHandler_CreateKeyValidation(t *testing.T) {
	h := NewAdminHandler(keystore.NewMemoryStore(), testSalt)

	tests := []struct {
		name string
		body string
	}{
		{"empty name", `{"name":"","owner_email":"a@b.io"}`},
		{"long name", `{"name":"` + strings.Repeat("x", 256) + `","owner_email":"a@b.io"}`},
		{"bad email", `{"name":"n","owner_email":"not-an-email"}`},
		{"display name email", `{"name":"n","owner_email":"Bob <bob@b.io>"}`},
		{"unknown plan", `{"name":"n","owner_email":"a@b.io","plan":"platinum"}`},
		{"malformed json", `{"name":`},
		{"unknown field", `{"name":"n","owner_email":"a@b.io","admin":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, h, http.MethodPost, "/v1/admin/keys", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			var resp types.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if resp.Error.Code != types.CodeValidation {
				t.Errorf("expected code %s, got %s", types.CodeValidation, resp.Error.Code)
			}
		})
	}
}

type failingStore struct {
	*keystore.MemoryStore
}

func (failingStore) Create(ctx context.Context, key *keystore.APIKey) error {
	return errors.New("database is locked")
}

func TestAdminHandler_CreateKeyStoreFailure(t *testing.T) {
	h := NewAdminHandler(failingStore{keystore.NewMemoryStore()}, testSalt)

	w := serve(t, h, http.MethodPost, "/v1/admin/keys", `{"name":"n","owner_email":"a@b.io"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "locked") {
		t.Error("store error leaked into response")
	}
}

func TestAdminHandler_ListAndRevoke(t *testing.T) {
	store := keystore.NewMemoryStore()
	h := NewAdminHandler(store, testSalt)

	created := serve(t, h, http.MethodPost, "/v1/admin/keys", `{"name":"n","owner_email":"a@b.io"}`)
	var resp CreateKeyResponse
	if err := json.NewDecoder(created.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	w := serve(t, h, http.MethodGet, "/v1/admin/keys", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), resp.APIKey) {
		t.Error("list exposed plaintext key")
	}
	var list struct {
		Keys []KeySummary `json:"keys"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list.Keys) != 1 || list.Keys[0].Prefix != resp.Prefix {
		t.Fatalf("expected one key with prefix %s, got %+v", resp.Prefix, list.Keys)
	}

	tests := []struct {
		name           string
		target         string
		expectedStatus int
	}{
		{"revoke", "/v1/admin/keys/1", http.StatusOK},
		{"already revoked", "/v1/admin/keys/1", http.StatusNotFound},
		{"unknown id", "/v1/admin/keys/99", http.StatusNotFound},
		{"non-numeric id", "/v1/admin/keys/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, h, http.MethodDelete, tt.target, "")
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestRoot(t *testing.T) {
	w := httptest.NewRecorder()
	Root("BlueTrace API", "0.1.0").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp RootResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "BlueTrace API" || resp.Version != "0.1.0" {
		t.Errorf("unexpected root response %+v", resp)
	}
}
