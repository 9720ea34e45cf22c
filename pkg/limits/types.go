package limits

import "time"

// PlanLimit is the request allowance for one plan tier.
type PlanLimit struct {
	// Requests is the number of requests admitted per window.
	Requests int

	// Window is the length of the sliding window.
	Window time.Duration
}

// WindowSeconds returns the window length in whole seconds.
func (p PlanLimit) WindowSeconds() int {
	return int(p.Window / time.Second)
}

// Decision is the outcome of an admission check for one request.
// It is used to populate the X-RateLimit-* response headers.
type Decision struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Plan is the plan tier the limit was resolved from.
	Plan string

	// Limit is the resolved plan limit.
	Limit PlanLimit

	// Remaining is how many requests remain in the current window.
	Remaining int

	// Degraded is set when the bucket store failed and the failure policy
	// decided the outcome.
	Degraded bool
}
