// Package cache is the best-effort Redis response cache for the query API.
// It is read-through and fails open: a cache outage degrades to computing
// every response, never to an error.
package cache

import (
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sells-group/listing-aggregator/internal/config"
)

// Key prefixes for the two cached endpoints.
const (
	PrefixProperties = "properties_search"
	PrefixMetadata   = "filter_metadata"
)

// Cache wraps a Redis client with the API's caching conventions.
type Cache struct {
	rdb *redis.Client
}

// New creates a Cache against the configured Redis endpoint.
func New(cfg config.CacheConfig) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: cfg.URL}),
	}
}

// Key derives the deterministic cache key for a parameter set. The params
// map is serialized with keys in sorted order, so any two requests with the
// same parameters produce the same key regardless of query-string order.
func Key(prefix string, params map[string]string) string {
	// encoding/json emits map keys in sorted order.
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte("{}")
	}
	sum := md5.Sum(raw) //nolint:gosec
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached body for key, or (nil, false) on miss. Redis
// errors count as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("cache read failed, treating as miss",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return nil, false
	}
	return val, true
}

// Set stores body under key with the given TTL. Failures are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, body, ttl).Err(); err != nil {
		zap.L().Warn("cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Ping reports cache reachability for health checks.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
