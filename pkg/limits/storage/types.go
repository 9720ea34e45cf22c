package storage

import (
	"context"
	"time"
)

// ExpirySlack is added to the window when setting a bucket's expiry so a
// bucket outlives its newest timestamp.
const ExpirySlack = 10 * time.Second

// Backend stores sliding-window buckets: per-key sets of admission
// timestamps. Implementations must be safe for concurrent use and must run
// each Admit atomically per key.
type Backend interface {
	// Admit performs one sliding-window step for key at now:
	// drop timestamps <= now-window, reject when the remaining count is at
	// least limit, otherwise record now and refresh the bucket expiry to
	// window+ExpirySlack. It returns whether the attempt was admitted and
	// the bucket count after the step.
	Admit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (bool, int, error)

	// Count drops timestamps <= now-window and returns how many remain.
	Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// unixSeconds converts t to fractional unix seconds with microsecond
// resolution.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
