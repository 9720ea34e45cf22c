package limits

import (
	"context"
	"time"

	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/limits/ratelimit"
)

// Manager combines plan resolution and sliding-window admission.
//
// # Example
//
//	manager := limits.NewManager(
//	    limits.NewPlanResolver(config.GetConfig),
//	    limiter,
//	    limits.NewMetrics(registry),
//	)
//
//	decision := manager.Check(ctx, key)
//	if !decision.Allowed {
//	    // respond 429
//	}
type Manager struct {
	resolver *PlanResolver
	limiter  *ratelimit.SlidingWindowLimiter
	metrics  *Metrics
}

// NewManager creates a manager. metrics may be nil.
func NewManager(resolver *PlanResolver, limiter *ratelimit.SlidingWindowLimiter, metrics *Metrics) *Manager {
	return &Manager{
		resolver: resolver,
		limiter:  limiter,
		metrics:  metrics,
	}
}

// Check resolves the key's plan and performs one admission attempt for its
// subject. It never returns an error: store failures are settled by the
// limiter's failure policy.
func (m *Manager) Check(ctx context.Context, key *keystore.APIKey) Decision {
	start := time.Now()
	plan := string(key.Plan)
	limit := m.resolver.Resolve(plan)

	res := m.limiter.Take(ctx, key.Subject(), limit.Requests, limit.Window)

	m.metrics.RecordDecision(plan, res.Admitted)
	m.metrics.RecordCheckDuration(time.Since(start))

	return Decision{
		Allowed:   res.Admitted,
		Plan:      plan,
		Limit:     limit,
		Remaining: res.Remaining,
		Degraded:  res.Degraded,
	}
}

// Remaining reports the key's remaining allowance without recording an
// attempt.
func (m *Manager) Remaining(ctx context.Context, key *keystore.APIKey) (PlanLimit, int) {
	limit := m.resolver.Resolve(string(key.Plan))
	return limit, m.limiter.Remaining(ctx, key.Subject(), limit.Requests, limit.Window)
}

// Limiter returns the underlying limiter.
func (m *Manager) Limiter() *ratelimit.SlidingWindowLimiter {
	return m.limiter
}
