package keystore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local tooling.
// It enforces the same uniqueness and soft-revocation rules as SQLStore.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	keys   map[int64]*APIKey
}

// NewMemoryStore creates an empty in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[int64]*APIKey)}
}

func (m *MemoryStore) Create(ctx context.Context, key *APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.keys {
		if existing.KeyHash == key.KeyHash {
			return ErrDuplicateHash
		}
	}
	if key.Plan == "" {
		key.Plan = PlanFree
	}

	m.nextID++
	key.ID = m.nextID
	key.CreatedAt = time.Now().UTC()
	m.keys[key.ID] = clone(key)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if key, ok := m.keys[id]; ok {
		return clone(key), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetByPrefix(ctx context.Context, prefix string) (*APIKey, error) {
	return m.find(func(k *APIKey) bool { return k.Prefix == prefix })
}

func (m *MemoryStore) FindByHash(ctx context.Context, hash string) (*APIKey, error) {
	return m.find(func(k *APIKey) bool { return k.KeyHash == hash })
}

func (m *MemoryStore) FindActiveByHash(ctx context.Context, hash string) (*APIKey, error) {
	return m.find(func(k *APIKey) bool { return k.KeyHash == hash && k.Active() })
}

func (m *MemoryStore) List(ctx context.Context) ([]*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]*APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		keys = append(keys, clone(k))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}

func (m *MemoryStore) Revoke(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[id]
	if !ok || !key.Active() {
		return ErrNotFound
	}
	now := time.Now().UTC()
	key.RevokedAt = &now
	return nil
}

func (m *MemoryStore) SetCustomerID(ctx context.Context, id int64, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	key.StripeCustomerID = customerID
	return nil
}

func (m *MemoryStore) UpdatePlanByCustomerID(ctx context.Context, customerID string, plan Plan, subscriptionID string) (int64, error) {
	return m.update(
		func(k *APIKey) bool { return customerID != "" && k.StripeCustomerID == customerID },
		func(k *APIKey) {
			k.Plan = plan
			k.StripeSubscriptionID = subscriptionID
		},
	), nil
}

func (m *MemoryStore) UpdatePlanBySubscriptionID(ctx context.Context, subscriptionID string, plan Plan) (int64, error) {
	return m.update(
		func(k *APIKey) bool { return subscriptionID != "" && k.StripeSubscriptionID == subscriptionID },
		func(k *APIKey) { k.Plan = plan },
	), nil
}

func (m *MemoryStore) ClearSubscription(ctx context.Context, subscriptionID string) (int64, error) {
	return m.update(
		func(k *APIKey) bool { return subscriptionID != "" && k.StripeSubscriptionID == subscriptionID },
		func(k *APIKey) {
			k.Plan = PlanFree
			k.StripeSubscriptionID = ""
		},
	), nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) find(match func(*APIKey) bool) (*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, k := range m.keys {
		if match(k) {
			return clone(k), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) update(match func(*APIKey) bool, apply func(*APIKey)) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, k := range m.keys {
		if match(k) {
			apply(k)
			n++
		}
	}
	return n
}

func clone(k *APIKey) *APIKey {
	c := *k
	if k.RevokedAt != nil {
		t := *k.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}
