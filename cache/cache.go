// Package cache provides a redis-backed entity cache for the service layer.
//
// Entries are grouped into regions (one region per entity type); writes to an
// entity drop its whole region, which keeps invalidation simple and correct
// in the presence of query-shaped keys. Values are msgpack-encoded and keys
// are hashed with xxhash to bound their length.
package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/code19m/errx"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	keySeparator = ":"

	// scanBatchSize bounds a single SCAN/DEL round-trip in DropRegion.
	scanBatchSize = 200
)

// Cache is a redis-backed region cache.
type Cache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	metrics Metrics
}

// New creates a cache backed by the redis deployment described in cfg.
func New(cfg Config) *Cache {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:         strings.Split(cfg.Addrs, ","),
		Username:      cfg.Username,
		Password:      cfg.Password,
		IsClusterMode: cfg.IsClusterMode,
	})

	return NewWithClient(client, cfg)
}

// NewWithClient creates a cache over an existing redis client.
// Useful for sharing one client between the cache and other components.
func NewWithClient(client redis.UniversalClient, cfg Config) *Cache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "datakit"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get loads the value stored under (region, key) into dest.
// Returns ErrMiss when the entry is absent.
func (c *Cache) Get(ctx context.Context, region, key string, dest any) error {
	data, err := c.client.Get(ctx, c.key(region, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.misses.Add(1)
		return ErrMiss
	}
	if err != nil {
		c.metrics.errors.Add(1)
		return errx.Wrap(err)
	}

	if err = msgpack.Unmarshal(data, dest); err != nil {
		c.metrics.errors.Add(1)
		return errx.Wrap(err)
	}

	c.metrics.hits.Add(1)
	return nil
}

// Set stores value under (region, key) with the default TTL.
func (c *Cache) Set(ctx context.Context, region, key string, value any) error {
	return c.SetTTL(ctx, region, key, value, c.ttl)
}

// SetTTL stores value under (region, key) with an explicit TTL.
func (c *Cache) SetTTL(ctx context.Context, region, key string, value any, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return errx.Wrap(err)
	}

	if err = c.client.Set(ctx, c.key(region, key), data, ttl).Err(); err != nil {
		c.metrics.errors.Add(1)
		return errx.Wrap(err)
	}
	return nil
}

// Delete removes individual entries from a region.
func (c *Cache) Delete(ctx context.Context, region string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(region, k))
	}

	if err := c.client.Del(ctx, full...).Err(); err != nil {
		c.metrics.errors.Add(1)
		return errx.Wrap(err)
	}
	return nil
}

// DropRegion removes every entry in a region using cursor-based SCAN,
// so large regions do not block redis.
func (c *Cache) DropRegion(ctx context.Context, region string) error {
	pattern := c.prefix + keySeparator + region + keySeparator + "*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			c.metrics.errors.Add(1)
			return errx.Wrap(err, errx.WithDetails(errx.D{"region": region}))
		}

		if len(keys) > 0 {
			if err = c.client.Del(ctx, keys...).Err(); err != nil {
				c.metrics.errors.Add(1)
				return errx.Wrap(err, errx.WithDetails(errx.D{"region": region}))
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Metrics returns a snapshot of the cache counters.
func (c *Cache) Metrics() Snapshot {
	return c.metrics.Snapshot()
}

// Ping verifies the redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errx.Wrap(err)
	}
	return nil
}

// Close releases the underlying redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// key builds "prefix:region:hash(key)". Hashing keeps key length bounded
// regardless of how long the logical key (often a rendered query) is.
func (c *Cache) key(region, key string) string {
	sum := xxhash.Sum64String(key)
	return c.prefix + keySeparator + region + keySeparator + strconv.FormatUint(sum, 16)
}
