package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend implements Backend in process memory. Buckets are not
// shared between gateway instances, so it suits tests and single-node
// deployments only.
//
// Each bucket carries its own mutex; the map lock is held only to find or
// create a bucket.
type MemoryBackend struct {
	// buckets maps bucket key to its timestamps.
	buckets map[string]*memoryBucket

	// mu protects access to the buckets map.
	mu sync.Mutex

	// cleanupInterval is how often expired buckets are swept.
	cleanupInterval time.Duration

	// done signals the cleanup goroutine to stop.
	done      chan struct{}
	closeOnce sync.Once
}

type memoryBucket struct {
	mu        sync.Mutex
	stamps    []float64
	expiresAt time.Time

	// removed is set by sweep once the bucket is no longer in the map.
	removed bool
}

// MemoryBackendConfig configures the memory backend.
type MemoryBackendConfig struct {
	// CleanupInterval is how often to sweep expired buckets.
	// Default: 1 minute
	CleanupInterval time.Duration
}

// NewMemoryBackend creates an in-memory backend with default settings.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithConfig(MemoryBackendConfig{})
}

// NewMemoryBackendWithConfig creates an in-memory backend with custom configuration.
func NewMemoryBackendWithConfig(cfg MemoryBackendConfig) *MemoryBackend {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	m := &MemoryBackend{
		buckets:         make(map[string]*memoryBucket),
		cleanupInterval: cfg.CleanupInterval,
		done:            make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Admit performs one sliding-window step under the bucket's lock.
func (m *MemoryBackend) Admit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (bool, int, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	b := m.lockedBucket(key)
	defer b.mu.Unlock()

	b.prune(unixSeconds(now.Add(-window)))
	count := len(b.stamps)
	if count >= limit {
		return false, count, nil
	}

	b.stamps = append(b.stamps, unixSeconds(now))
	b.expiresAt = now.Add(window + ExpirySlack)
	return true, count + 1, nil
}

// Count prunes the bucket and returns its size.
func (m *MemoryBackend) Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	b, ok := m.buckets[key]
	m.mu.Unlock()
	if !ok {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(unixSeconds(now.Add(-window)))
	return len(b.stamps), nil
}

// Ping always succeeds.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryBackend) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

// Size returns the number of live buckets.
func (m *MemoryBackend) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// lockedBucket returns the bucket for key with its lock held, creating it
// when absent. A bucket swept between lookup and lock is replaced.
func (m *MemoryBackend) lockedBucket(key string) *memoryBucket {
	for {
		m.mu.Lock()
		b, ok := m.buckets[key]
		if !ok {
			b = &memoryBucket{}
			m.buckets[key] = b
		}
		m.mu.Unlock()

		b.mu.Lock()
		if !b.removed {
			return b
		}
		b.mu.Unlock()
	}
}

// prune drops timestamps <= cutoff.
func (b *memoryBucket) prune(cutoff float64) {
	kept := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	b.stamps = kept
}

// sweep removes empty buckets and buckets whose expiry has passed.
func (m *MemoryBackend) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, b := range m.buckets {
		b.mu.Lock()
		if len(b.stamps) == 0 || now.After(b.expiresAt) {
			b.removed = true
			delete(m.buckets, key)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

func (m *MemoryBackend) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.done:
			return
		}
	}
}
