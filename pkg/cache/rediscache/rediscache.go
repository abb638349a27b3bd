package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/flockhq/flock/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// Cache stores entries in Redis under a key namespace so that several
// processes share lookups and invalidations.
type Cache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration

	hits      atomic.Uint64
	misses    atomic.Uint64
	keysAdded atomic.Uint64
}

// Config holds configuration for the redis cache.
type Config struct {
	Addr       string
	Password   string
	DB         int
	Namespace  string // Prefix for every key, e.g. "flock:"
	DefaultTTL time.Duration
}

// New connects to Redis and verifies the connection.
func New(config *Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	return NewWithClient(client, config.Namespace, config.DefaultTTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, namespace string, defaultTTL time.Duration) *Cache {
	return &Cache{client: client, namespace: namespace, ttl: defaultTTL}
}

// Get retrieves a value from cache. Values come back as strings.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	value, err := c.client.Get(ctx, c.namespace+key).Result()
	if err != nil {
		// redis.Nil and transport errors both fall through to the store
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return value, true
}

// Set stores a string or byte slice value with the specified TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	switch value.(type) {
	case string, []byte:
	default:
		return fmt.Errorf("rediscache: unsupported value type %T", value)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	if err := c.client.Set(ctx, c.namespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	c.keysAdded.Add(1)
	return nil
}

// Delete removes a value from cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.namespace+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry under the namespace.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.namespace+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Metrics returns statistics observed by this process. Evictions happen
// inside Redis and are not reported.
func (c *Cache) Metrics() *cache.Metrics {
	return &cache.Metrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		KeysAdded: c.keysAdded.Load(),
	}
}

var _ cache.Cache = (*Cache)(nil)
