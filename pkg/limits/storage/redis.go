package storage

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"bluetrace-hq/gateway/pkg/config"
)

// admitScript runs one sliding-window step atomically.
//
// KEYS[1] bucket key
// ARGV[1] now (unix seconds, fractional)
// ARGV[2] window start; scores <= this are dropped
// ARGV[3] limit
// ARGV[4] member for this attempt
// ARGV[5] expiry in seconds
//
// Returns {admitted (0|1), count after the step}.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
if count >= limit then
	return {0, count}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('EXPIRE', key, tonumber(ARGV[5]))
return {1, count + 1}
`)

// RedisBackend implements Backend on Redis sorted sets. The set is scored
// by admission time, so pruning is a single ZREMRANGEBYSCORE.
type RedisBackend struct {
	client redis.UniversalClient
	seq    atomic.Uint64
}

// NewRedisBackend creates a backend on an existing client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	b := &RedisBackend{client: client}
	// Members must be unique across gateway instances sharing a bucket.
	b.seq.Store(rand.Uint64() >> 16)
	return b
}

// NewRedisClient creates a client from the redis section of the config.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return redis.NewClient(opts), nil
}

// Init loads the admission script so later calls can use EVALSHA.
func (b *RedisBackend) Init(ctx context.Context) error {
	if err := admitScript.Load(ctx, b.client).Err(); err != nil {
		return fmt.Errorf("failed to load rate limit script: %w", err)
	}
	return nil
}

// Admit runs the admission script for key.
func (b *RedisBackend) Admit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (bool, int, error) {
	nowScore := unixSeconds(now)
	member := strconv.FormatFloat(nowScore, 'f', 6, 64) + "-" + strconv.FormatUint(b.seq.Add(1), 10)
	expiry := int64((window + ExpirySlack + time.Second - 1) / time.Second)

	// Script.Run tries EVALSHA first and falls back to EVAL on NOSCRIPT.
	res, err := admitScript.Run(ctx, b.client, []string{key},
		nowScore,
		unixSeconds(now.Add(-window)),
		limit,
		member,
		expiry,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit script returned %d values", len(res))
	}
	return res[0] == 1, int(res[1]), nil
}

// Count prunes and counts the bucket in one transaction.
func (b *RedisBackend) Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	var card *redis.IntCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(unixSeconds(now.Add(-window)), 'f', 6, 64))
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rate limit count failed: %w", err)
	}
	return int(card.Val()), nil
}

// Ping verifies Redis is reachable.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
