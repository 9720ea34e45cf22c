// Package storage provides the bucket stores behind the sliding-window
// rate limiter.
//
// A bucket is the set of admission timestamps for one subject, scored in
// fractional unix seconds. Two backends are provided:
//
//   - Redis: sorted sets updated by a Lua script, shared by every gateway
//     instance pointed at the same Redis
//   - Memory: a process-local map, for tests and single-node deployments
//
// # Usage
//
//	client, err := storage.NewRedisClient(cfg.Redis)
//	backend := storage.NewRedisBackend(client)
//	if err := backend.Init(ctx); err != nil {
//	    return err
//	}
//
//	admitted, count, err := backend.Admit(ctx, "rate_limit:api_key:7", time.Now(), 300, time.Minute)
//
// # Thread Safety
//
// All backends are safe for concurrent use. Admit is atomic per key: the
// Redis backend runs it as a single script, the memory backend holds the
// bucket's mutex for the whole step.
package storage
