package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"cost-forecast-engine/forecast"
)

// ForecastCache stores rendered forecast outputs keyed by request. Both
// implementations tolerate concurrent use; a cache miss is (nil, false, nil).
type ForecastCache interface {
	Get(ctx context.Context, key string) (*forecast.Output, bool, error)
	Set(ctx context.Context, key string, output *forecast.Output) error
	Invalidate(ctx context.Context, seriesID string) error
}

// CacheKey derives the cache key for a forecast request against the current
// state of a series. Any new point changes the revision and so the key.
func CacheKey(seriesID string, revision int, req forecast.Request) string {
	spec, _ := json.Marshal(req)
	return fmt.Sprintf("forecast:%s:%d:%x", seriesID, revision, spec)
}

type memoryEntry struct {
	output    *forecast.Output
	expiresAt time.Time
}

// MemoryCache is the in-process TTL cache used when Redis is not configured.
type MemoryCache struct {
	ttl     time.Duration
	entries map[string]memoryEntry
	mu      sync.Mutex
}

// NewMemoryCache creates a memory cache with the given entry TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the cached output for key, if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) (*forecast.Output, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.output, true, nil
}

// Set stores an output under key.
func (c *MemoryCache) Set(_ context.Context, key string, output *forecast.Output) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic sweep keeps expired entries from accumulating.
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{output: output, expiresAt: now.Add(c.ttl)}
	return nil
}

// Invalidate drops every cached forecast for a series.
func (c *MemoryCache) Invalidate(_ context.Context, seriesID string) error {
	prefix := "forecast:" + seriesID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	return nil
}

// RedisCache stores forecast outputs in Redis so cached results survive
// restarts and are shared between replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached output for key, if present.
func (c *RedisCache) Get(ctx context.Context, key string) (*forecast.Output, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var output forecast.Output
	if err := json.Unmarshal(data, &output); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		return nil, false, nil
	}
	return &output, true, nil
}

// Set stores an output under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, output *forecast.Output) error {
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("marshal forecast output: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops every cached forecast for a series.
func (c *RedisCache) Invalidate(ctx context.Context, seriesID string) error {
	pattern := "forecast:" + seriesID + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
