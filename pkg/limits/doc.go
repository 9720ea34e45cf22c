// Package limits decides whether an authenticated request fits its plan's
// rate limit.
//
// # Architecture
//
//   - PlanResolver: maps a plan tier to {requests, window} from the live
//     config snapshot
//   - ratelimit: the sliding-window limiter
//   - storage: bucket stores (Redis, memory)
//   - Manager: resolves the plan, runs the limiter and records metrics
//
// # Usage
//
//	decision := manager.Check(ctx, key)
//	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit.Requests))
//	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
//	if !decision.Allowed {
//	    // respond 429
//	}
package limits
