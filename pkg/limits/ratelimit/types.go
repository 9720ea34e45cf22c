package ratelimit

import "time"

// Config contains configuration for the sliding-window limiter.
type Config struct {
	// StoreTimeout bounds every bucket store call.
	// Default: 2s
	StoreTimeout time.Duration

	// KeyPrefix is prepended to the subject to form the bucket key.
	// Default: "rate_limit:"
	KeyPrefix string

	// FailOpen admits requests when the store fails or times out.
	// When false, store failures reject.
	FailOpen bool

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// Result is the outcome of one admission attempt.
type Result struct {
	// Admitted reports whether the attempt was recorded.
	Admitted bool

	// Remaining is max(0, limit-count) after the attempt.
	Remaining int

	// Degraded is set when the store failed and the failure policy decided.
	Degraded bool
}

// Observer receives limiter events. It is satisfied by limits.Metrics.
type Observer interface {
	// ObserveStoreFailure is called once per failed store call.
	// admitted reports the decision the failure policy produced.
	ObserveStoreFailure(operation string, admitted bool)
}
