package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"bluetrace-hq/gateway/pkg/keystore"
)

// ErrInvalidKey is the only authentication failure callers ever see.
// Missing, unknown and revoked keys are told apart in logs only.
var ErrInvalidKey = errors.New("invalid or missing key")

// LookupTimeout bounds a shared key lookup.
const LookupTimeout = 5 * time.Second

// Failure reasons attached to logs and metrics.
const (
	ReasonMissing  = "missing"
	ReasonUnknown  = "unknown"
	ReasonRevoked  = "revoked"
	ReasonNotAdmin = "not_admin"
)

// FailureRecorder counts authentication failures by reason.
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Authenticator resolves a presented credential to an active key record.
type Authenticator struct {
	store    keystore.Store
	salt     string
	failures FailureRecorder
	group    singleflight.Group
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator digesting credentials with salt.
// failures may be nil.
func NewAuthenticator(store keystore.Store, salt string, failures FailureRecorder) *Authenticator {
	return &Authenticator{
		store:    store,
		salt:     salt,
		failures: failures,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Authenticate returns the active key matching credential.
//
// It returns ErrInvalidKey when the credential is empty, unknown or revoked.
// Any other error means the key store could not be consulted and must be
// treated as an internal failure.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*keystore.APIKey, error) {
	if credential == "" {
		a.reject(ctx, ReasonMissing, "")
		return nil, ErrInvalidKey
	}

	hash := HashKey(a.salt, credential)

	// Concurrent requests presenting the same key share one lookup. It
	// runs detached from the caller that started it, so one disconnect
	// does not fail the others waiting on it.
	v, err, _ := a.group.Do(hash, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LookupTimeout)
		defer cancel()
		return a.store.FindActiveByHash(lookupCtx, hash)
	})
	if err == nil {
		key := *v.(*keystore.APIKey)
		return &key, nil
	}
	if !errors.Is(err, keystore.ErrNotFound) {
		return nil, fmt.Errorf("key lookup failed: %w", err)
	}

	reason := ReasonUnknown
	if key, ferr := a.store.FindByHash(ctx, hash); ferr == nil && !key.Active() {
		reason = ReasonRevoked
	}
	a.reject(ctx, reason, PrefixOf(credential))
	return nil, ErrInvalidKey
}

// IsAdmin reports whether key belongs to the administrative owner.
func IsAdmin(key *keystore.APIKey, adminEmail string) bool {
	return key != nil && adminEmail != "" && key.OwnerEmail == adminEmail
}

func (a *Authenticator) reject(ctx context.Context, reason, prefix string) {
	a.logger.WarnContext(ctx, "authentication failed",
		"reason", reason,
		"key_prefix", prefix,
	)
	if a.failures != nil {
		a.failures.RecordAuthFailure(reason)
	}
}
