package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/limits/storage"
)

// initializer is implemented by backends that need setup before use.
type initializer interface {
	Init(ctx context.Context) error
}

// SlidingWindowLimiter admits requests against per-subject sliding windows
// held in a storage.Backend. It is safe for concurrent use.
type SlidingWindowLimiter struct {
	backend  storage.Backend
	timeout  time.Duration
	prefix   string
	clock    func() time.Time
	failOpen atomic.Bool
	observer Observer
	logger   *slog.Logger
}

// NewSlidingWindowLimiter creates a limiter on backend. observer may be nil.
func NewSlidingWindowLimiter(backend storage.Backend, cfg Config, observer Observer) *SlidingWindowLimiter {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = config.DefaultStoreTimeout
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = config.DefaultBucketKeyPrefix
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	l := &SlidingWindowLimiter{
		backend:  backend,
		timeout:  cfg.StoreTimeout,
		prefix:   cfg.KeyPrefix,
		clock:    cfg.Clock,
		observer: observer,
		logger:   slog.Default().With("component", "ratelimit"),
	}
	l.failOpen.Store(cfg.FailOpen)
	return l
}

// Init verifies the backend is reachable and prepares it.
func (l *SlidingWindowLimiter) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.backend.Ping(ctx); err != nil {
		return err
	}
	if b, ok := l.backend.(initializer); ok {
		return b.Init(ctx)
	}
	return nil
}

// Shutdown releases the backend.
func (l *SlidingWindowLimiter) Shutdown(ctx context.Context) error {
	return l.backend.Close()
}

// SetFailOpen changes the failure policy. Safe to call while serving.
func (l *SlidingWindowLimiter) SetFailOpen(open bool) {
	l.failOpen.Store(open)
}

// FailOpen reports the current failure policy.
func (l *SlidingWindowLimiter) FailOpen() bool {
	return l.failOpen.Load()
}

// Admit reports whether one more request for subject fits in the window.
func (l *SlidingWindowLimiter) Admit(ctx context.Context, subject string, limit int, window time.Duration) bool {
	return l.Take(ctx, subject, limit, window).Admitted
}

// Take performs one admission attempt and reports the remaining allowance.
func (l *SlidingWindowLimiter) Take(ctx context.Context, subject string, limit int, window time.Duration) Result {
	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	admitted, count, err := l.backend.Admit(storeCtx, l.prefix+subject, l.clock(), limit, window)
	if err != nil {
		admitted = l.failOpen.Load()
		l.storeFailed(ctx, "admit", subject, admitted, err)
		remaining := limit
		if !admitted {
			remaining = 0
		}
		return Result{Admitted: admitted, Remaining: max(remaining, 0), Degraded: true}
	}

	return Result{Admitted: admitted, Remaining: max(limit-count, 0)}
}

// Remaining returns max(0, limit-count) for subject without recording an
// attempt. On store failure it returns limit.
func (l *SlidingWindowLimiter) Remaining(ctx context.Context, subject string, limit int, window time.Duration) int {
	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	count, err := l.backend.Count(storeCtx, l.prefix+subject, l.clock(), window)
	if err != nil {
		l.storeFailed(ctx, "count", subject, true, err)
		return max(limit, 0)
	}
	return max(limit-count, 0)
}

// storeContext detaches from the caller's cancellation so a disconnecting
// client cannot abort a half-applied bucket mutation.
func (l *SlidingWindowLimiter) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
}

func (l *SlidingWindowLimiter) storeFailed(ctx context.Context, op, subject string, admitted bool, err error) {
	l.logger.WarnContext(ctx, "rate limit store unavailable",
		"operation", op,
		"subject", subject,
		"admitted", admitted,
		"error", err,
	)
	if l.observer != nil {
		l.observer.ObserveStoreFailure(op, admitted)
	}
}
