// Package ratelimit implements per-subject sliding-window admission.
//
// # Algorithm
//
// Every subject owns a bucket of admission timestamps. An attempt at time
// now:
//
//  1. drops timestamps <= now-window
//  2. counts what is left and rejects, without recording, when the count
//     is at least the limit
//  3. otherwise records now and refreshes the bucket expiry to
//     window+10s
//
// The steps run atomically per subject inside the storage backend.
//
// # Failure Policy
//
// Store errors and timeouts never propagate to callers. With FailOpen the
// attempt is admitted, otherwise it is rejected; either way the failure is
// logged and reported to the Observer.
//
// # Usage
//
//	limiter := ratelimit.NewSlidingWindowLimiter(backend, ratelimit.Config{
//	    StoreTimeout: 2 * time.Second,
//	    FailOpen:     true,
//	}, metrics)
//	if err := limiter.Init(ctx); err != nil {
//	    return err
//	}
//	defer limiter.Shutdown(ctx)
//
//	if !limiter.Admit(ctx, "api_key:7", 300, time.Minute) {
//	    // reject with 429
//	}
package ratelimit
