package noncecache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "scan:nonce:"

// RedisCache is the fleet-wide nonce set. SET NX with a TTL makes the admit
// check atomic across verifier instances; the TTL only needs to outlive the
// payload freshness window.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed nonce cache. ttl should comfortably
// exceed the payload freshness window (2x is plenty).
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Admit(ctx context.Context, nonce string) (bool, error) {
	ok, err := c.client.SetNX(ctx, nonceKeyPrefix+nonce, "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("admit nonce: %w", err)
	}
	return ok, nil
}
