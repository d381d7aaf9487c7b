package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: miss")

// IQueryCache caches JSON-serializable read-query results under string keys.
// Services hold a reference and invalidate key patterns after any write that
// could make a cached result stale.
type IQueryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, patterns ...string) error
}

const keyPrefix = "qc:"

// queryCache implements IQueryCache on Redis with a fixed default TTL.
type queryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQueryCache creates a query cache with the given default expiry.
func NewQueryCache(rdb *redis.Client, ttl time.Duration) IQueryCache {
	return &queryCache{rdb: rdb, ttl: ttl}
}

// Key builds a cache key from query name and arguments, e.g.
// Key("bills", "resident", id) -> "bills:resident:<id>".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func (c *queryCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.rdb.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		// A decode failure means the stored shape changed; treat as a miss.
		_ = c.rdb.Del(ctx, keyPrefix+key).Err()
		return ErrCacheMiss
	}
	return nil
}

func (c *queryCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %s: marshal: %w", key, err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes all keys matching the given glob patterns. Failures are
// logged but not fatal: a stale entry expires on its own TTL anyway.
func (c *queryCache) Invalidate(ctx context.Context, patterns ...string) error {
	for _, pattern := range patterns {
		iter := c.rdb.Scan(ctx, 0, keyPrefix+pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				log.Printf("WARN: failed to delete cache key %s: %v", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache invalidate %s: %w", pattern, err)
		}
	}
	return nil
}

// NoopCache satisfies IQueryCache without caching anything. Used where a
// cache is not wired (tests, background workers).
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string, dest interface{}) error { return ErrCacheMiss }
func (NoopCache) Set(ctx context.Context, key string, value interface{}) error {
	return nil
}
func (NoopCache) Invalidate(ctx context.Context, patterns ...string) error { return nil }
