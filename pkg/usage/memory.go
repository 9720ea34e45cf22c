package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(ctx context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	for _, e := range m.events {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := int64(len(m.events) - len(kept))
	m.events = kept
	return removed, nil
}

func (m *MemoryStore) Summarize(ctx context.Context, apiKeyID int64, since time.Time) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sum Summary
	for _, e := range m.events {
		if e.APIKeyID == apiKeyID && !e.CreatedAt.Before(since) {
			sum.Requests++
			sum.BytesSent += e.BytesSent
			sum.BytesReceived += e.BytesReceived
		}
	}
	return sum, nil
}

// Events returns a copy of the stored events.
func (m *MemoryStore) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
