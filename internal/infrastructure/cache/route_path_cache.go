package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/redis/go-redis/v9"
)

// RedisRoutePathCache keeps computed optimized paths keyed by stop set
type RedisRoutePathCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRoutePathCache creates a path cache on a shared client
func NewRedisRoutePathCache(client redis.UniversalClient) *RedisRoutePathCache {
	return &RedisRoutePathCache{client: client, keyPrefix: "distribuidora:route-path:"}
}

// Get returns the cached path for a stop set key
func (c *RedisRoutePathCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read route path: %w", err)
	}
	return json.RawMessage(raw), true, nil
}

// Put stores a path for ttl
func (c *RedisRoutePathCache) Put(ctx context.Context, key string, path json.RawMessage, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, []byte(path), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store route path: %w", err)
	}
	return nil
}

// InMemoryRoutePathCache is the single-instance fallback
type InMemoryRoutePathCache struct {
	paths *ttlMap[json.RawMessage]
}

// NewInMemoryRoutePathCache creates a new in-memory path cache
func NewInMemoryRoutePathCache() *InMemoryRoutePathCache {
	return &InMemoryRoutePathCache{paths: newTTLMap[json.RawMessage](10 * time.Minute)}
}

// Get returns the cached path for a stop set key
func (c *InMemoryRoutePathCache) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	path, ok := c.paths.get(key)
	return path, ok, nil
}

// Put stores a copy of path for ttl
func (c *InMemoryRoutePathCache) Put(_ context.Context, key string, path json.RawMessage, ttl time.Duration) error {
	c.paths.set(key, append(json.RawMessage(nil), path...), ttl)
	return nil
}

// Close stops the sweeper
func (c *InMemoryRoutePathCache) Close() error {
	c.paths.close()
	return nil
}

var (
	_ logistics.PathCache = (*RedisRoutePathCache)(nil)
	_ logistics.PathCache = (*InMemoryRoutePathCache)(nil)
)
