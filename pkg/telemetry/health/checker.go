package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status values reported by checks and summaries.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds a check when New is given no timeout.
const DefaultCheckTimeout = 2 * time.Second

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one probe.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message describes the failure for unhealthy checks.
	Message string `json:"message,omitempty"`

	Duration time.Duration `json:"duration_ms,omitempty"`
}

// Healthy reports whether the check passed.
func (r CheckResult) Healthy() bool {
	return r.Status == StatusOK
}

// Results maps check name to outcome.
type Results map[string]CheckResult

// Healthy reports whether every check passed. No checks is healthy.
func (rs Results) Healthy() bool {
	for _, r := range rs {
		if !r.Healthy() {
			return false
		}
	}
	return true
}

// HealthStatus is the body of the liveness and readiness probes.
type HealthStatus struct {
	// Status is "ok" (liveness), "ready" or "degraded".
	Status string `json:"status"`

	Checks Results `json:"checks,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Checker holds the dependency probes of the gateway: the durable store
// and the rate limit bucket store.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	checkTimeout time.Duration
}

// New creates a checker that bounds each probe by checkTimeout.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck adds or replaces the probe registered under name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// ListChecks returns the registered names in sorted order.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CheckLiveness reports that the process is serving. It probes nothing.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{Status: StatusOK, Timestamp: time.Now()}
}

// CheckReadiness probes every dependency: "ready" when all pass, otherwise
// "degraded".
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	results := c.RunChecks(ctx)

	status := StatusReady
	if !results.Healthy() {
		status = StatusDegraded
	}
	return HealthStatus{Status: status, Checks: results, Timestamp: time.Now()}
}

// RunChecks runs every probe concurrently. The slowest probe, capped at
// the check timeout, bounds the call.
func (c *Checker) RunChecks(ctx context.Context) Results {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make([]CheckFunc, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	outcomes := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			outcomes[i] = c.probe(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	results := make(Results, len(names))
	for i, name := range names {
		results[name] = outcomes[i]
	}
	return results
}

// probe runs check under the timeout. A check that ignores its context is
// abandoned when the timeout fires.
func (c *Checker) probe(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		return CheckResult{Status: StatusUnhealthy, Message: "health check timeout", Duration: time.Since(start)}
	}

	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Duration: time.Since(start)}
	}
	return CheckResult{Status: StatusOK, Duration: time.Since(start)}
}
