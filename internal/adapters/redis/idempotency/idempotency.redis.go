// Package idempotency is the redis-backed fast path for dedup-key
// lookups. Every method here tolerates redis being completely
// unavailable: callers treat a non-nil error as "fall back to the
// store", never as a hard failure.
package idempotency

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// Cache is the derived-hint cache the resolver's fast path reads.
type Cache interface {
	Get(ctx context.Context, dedupKey string) (string, error)
	Set(ctx context.Context, dedupKey, paymentID string, ttl time.Duration) error
}

// RedisCache is the redis-backed Cache.
type RedisCache struct {
	Client *goredis.Client
}

// NewRedisCache returns a new Cache over client.
func NewRedisCache(client *goredis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

// Get returns the payment id cached for dedupKey. A miss is reported as
// goredis.Nil and must be treated by the caller as "continue to the
// store", identically to any other cache error.
func (c *RedisCache) Get(ctx context.Context, dedupKey string) (string, error) {
	return c.Client.Get(ctx, keyPrefix+dedupKey).Result()
}

// Set opportunistically writes dedupKey -> paymentID with the given
// TTL. Write errors are the caller's to ignore: the unique constraint on
// payments.idempotency_key is the durable source of truth, never this
// cache.
func (c *RedisCache) Set(ctx context.Context, dedupKey, paymentID string, ttl time.Duration) error {
	return c.Client.Set(ctx, keyPrefix+dedupKey, paymentID, ttl).Err()
}
