package keystore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no key matches a lookup.
	ErrNotFound = errors.New("api key not found")

	// ErrDuplicateHash is returned when a key with the same digest exists.
	ErrDuplicateHash = errors.New("api key hash already exists")
)

// Plan is a service tier controlling rate-limit thresholds.
type Plan string

// Known plan tiers.
const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Plans lists every known tier.
var Plans = []Plan{PlanFree, PlanPro, PlanEnterprise}

// Valid reports whether p is a known tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// ParsePlan converts s into a known tier.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan %q: must be one of free, pro, enterprise", s)
	}
	return p, nil
}

// APIKey is a persisted API key record. The plaintext credential is never
// part of the record; only its digest is stored.
type APIKey struct {
	ID                   int64
	Name                 string
	KeyHash              string
	Prefix               string
	OwnerEmail           string
	Plan                 Plan
	StripeCustomerID     string
	StripeSubscriptionID string
	RevokedAt            *time.Time
	CreatedAt            time.Time
}

// Active reports whether the key has not been revoked.
func (k *APIKey) Active() bool {
	return k.RevokedAt == nil
}

// Subject is the rate-limit bucket identifier for this key.
func (k *APIKey) Subject() string {
	return fmt.Sprintf("api_key:%d", k.ID)
}

// Store persists API key records. Every mutation is a single statement;
// there is no delete, only soft revocation.
type Store interface {
	// Create inserts key and sets its ID and CreatedAt.
	Create(ctx context.Context, key *APIKey) error

	// GetByID returns the key with the given id, revoked or not.
	GetByID(ctx context.Context, id int64) (*APIKey, error)

	// GetByPrefix returns the key with the given public prefix.
	GetByPrefix(ctx context.Context, prefix string) (*APIKey, error)

	// FindByHash returns the key with the given digest, revoked or not.
	FindByHash(ctx context.Context, hash string) (*APIKey, error)

	// FindActiveByHash returns the non-revoked key with the given digest.
	FindActiveByHash(ctx context.Context, hash string) (*APIKey, error)

	// List returns every key ordered by id.
	List(ctx context.Context) ([]*APIKey, error)

	// Revoke sets revoked_at on an active key.
	Revoke(ctx context.Context, id int64) error

	// SetCustomerID links a key to a billing customer.
	SetCustomerID(ctx context.Context, id int64, customerID string) error

	// UpdatePlanByCustomerID sets plan and subscription id on every key of
	// the billing customer and returns the number of keys updated.
	UpdatePlanByCustomerID(ctx context.Context, customerID string, plan Plan, subscriptionID string) (int64, error)

	// UpdatePlanBySubscriptionID sets plan on every key carrying the
	// subscription id.
	UpdatePlanBySubscriptionID(ctx context.Context, subscriptionID string, plan Plan) (int64, error)

	// ClearSubscription downgrades every key carrying the subscription id
	// to the free plan and unsets the subscription id.
	ClearSubscription(ctx context.Context, subscriptionID string) (int64, error)

	// Close releases resources held by the store.
	Close() error
}
