package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"bluetrace-hq/gateway/pkg/api"
	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/security/auth"
)

// KeyCreatedMessage accompanies every newly issued key.
const KeyCreatedMessage = "API key created successfully. Save this key - it won't be shown again!"

const maxKeyNameLength = 255

// CreateKeyRequest is the body of POST /v1/admin/keys.
type CreateKeyRequest struct {
	Name       string `json:"name"`
	OwnerEmail string `json:"owner_email"`
	Plan       string `json:"plan"`
}

// CreateKeyResponse returns the plaintext credential exactly once.
type CreateKeyResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	APIKey     string `json:"api_key"`
	Prefix     string `json:"prefix"`
	OwnerEmail string `json:"owner_email"`
	Plan       string `json:"plan"`
	Message    string `json:"message"`
}

// KeySummary describes an issued key without its credential or digest.
type KeySummary struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Prefix               string     `json:"prefix"`
	OwnerEmail           string     `json:"owner_email"`
	Plan                 string     `json:"plan"`
	StripeCustomerID     string     `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	RevokedAt            *time.Time `json:"revoked_at,omitempty"`
}

// AdminHandler serves key management endpoints. Callers must already be
// authenticated as the admin owner.
type AdminHandler struct {
	store  keystore.Store
	salt   string
	logger *slog.Logger
}

// NewAdminHandler creates a handler issuing keys digested under salt.
func NewAdminHandler(store keystore.Store, salt string) *AdminHandler {
	return &AdminHandler{
		store:  store,
		salt:   salt,
		logger: slog.Default().With("component", "admin"),
	}
}

// CreateKey handles POST /v1/admin/keys.
func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) error {
	var req CreateKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	plan, err := validateCreateKey(&req)
	if err != nil {
		return err
	}

	gen, err := auth.GenerateKey(h.salt)
	if err != nil {
		return err
	}

	key := &keystore.APIKey{
		Name:       req.Name,
		KeyHash:    gen.Hash,
		Prefix:     gen.Prefix,
		OwnerEmail: req.OwnerEmail,
		Plan:       plan,
	}
	if err := h.store.Create(r.Context(), key); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}

	h.logger.InfoContext(r.Context(), "api key created",
		"key_id", key.ID,
		"new_key_prefix", key.Prefix,
		"plan", string(key.Plan),
	)

	types.WriteJSON(w, http.StatusCreated, CreateKeyResponse{
		ID:         key.ID,
		Name:       key.Name,
		APIKey:     gen.Plaintext,
		Prefix:     key.Prefix,
		OwnerEmail: key.OwnerEmail,
		Plan:       string(key.Plan),
		Message:    KeyCreatedMessage,
	})
	return nil
}

// ListKeys handles GET /v1/admin/keys.
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) error {
	keys, err := h.store.List(r.Context())
	if err != nil {
		return fmt.Errorf("failed to list api keys: %w", err)
	}

	out := make([]KeySummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, Summarize(k))
	}
	types.WriteJSON(w, http.StatusOK, map[string]any{"keys": out})
	return nil
}

// RevokeKey handles DELETE /v1/admin/keys/{id}.
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return types.NewValidationError("Invalid key id", "Use the numeric id returned at creation")
	}

	if err := h.store.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return types.NewNotFoundError(fmt.Sprintf("Active API key not found: %d", id), "")
		}
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	h.logger.InfoContext(r.Context(), "api key revoked", "key_id", id)
	types.WriteJSON(w, http.StatusOK, types.StatusResponse{Status: "revoked"})
	return nil
}

// Routes returns the handlers keyed by mux pattern.
func (h *AdminHandler) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"POST /v1/admin/keys":        api.Wrap(h.CreateKey),
		"GET /v1/admin/keys":         api.Wrap(h.ListKeys),
		"DELETE /v1/admin/keys/{id}": api.Wrap(h.RevokeKey),
	}
}

// validateCreateKey normalizes req and returns its plan.
func validateCreateKey(req *CreateKeyRequest) (keystore.Plan, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || utf8.RuneCountInString(req.Name) > maxKeyNameLength {
		return "", types.NewValidationError("name must be between 1 and 255 characters", "")
	}

	addr, err := mail.ParseAddress(req.OwnerEmail)
	if err != nil || addr.Address != req.OwnerEmail {
		return "", types.NewValidationError("owner_email must be a valid email address", "")
	}

	if req.Plan == "" {
		req.Plan = string(keystore.PlanFree)
	}
	plan, err := keystore.ParsePlan(req.Plan)
	if err != nil {
		return "", types.NewValidationError("plan must be one of free, pro, enterprise", "")
	}
	return plan, nil
}

// decodeJSON decodes a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return types.NewValidationError("Invalid request body", err.Error())
	}
	return nil
}

// Summarize converts a stored key into its public description.
func Summarize(k *keystore.APIKey) KeySummary {
	return KeySummary{
		ID:                   k.ID,
		Name:                 k.Name,
		Prefix:               k.Prefix,
		OwnerEmail:           k.OwnerEmail,
		Plan:                 string(k.Plan),
		StripeCustomerID:     k.StripeCustomerID,
		StripeSubscriptionID: k.StripeSubscriptionID,
		CreatedAt:            k.CreatedAt,
		RevokedAt:            k.RevokedAt,
	}
}
