package limits

import (
	"time"

	"bluetrace-hq/gateway/pkg/config"
)

// PlanResolver maps a plan tier to its limit using the current config
// snapshot. The provider is called on every Resolve so a reloaded config
// takes effect on the next request.
type PlanResolver struct {
	provider func() *config.Config
}

// NewPlanResolver creates a resolver. A nil provider reads config.GetConfig.
func NewPlanResolver(provider func() *config.Config) *PlanResolver {
	if provider == nil {
		provider = config.GetConfig
	}
	return &PlanResolver{provider: provider}
}

// Resolve returns the limit for plan. Unknown tiers resolve to the free
// tier; when the config has no usable free entry the built-in table is used.
func (r *PlanResolver) Resolve(plan string) PlanLimit {
	var plans map[string]config.PlanLimitConfig
	if cfg := r.provider(); cfg != nil {
		plans = cfg.RateLimits.Plans
	}

	if limit, ok := lookup(plans, plan); ok {
		return limit
	}
	if limit, ok := lookup(plans, config.PlanFree); ok {
		return limit
	}

	defaults := config.DefaultPlanLimits()
	if limit, ok := lookup(defaults, plan); ok {
		return limit
	}
	limit, _ := lookup(defaults, config.PlanFree)
	return limit
}

func lookup(plans map[string]config.PlanLimitConfig, plan string) (PlanLimit, bool) {
	entry, ok := plans[plan]
	if !ok || entry.Requests < 0 || entry.Window <= 0 {
		return PlanLimit{}, false
	}
	return PlanLimit{
		Requests: entry.Requests,
		Window:   time.Duration(entry.Window) * time.Second,
	}, true
}
