package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/infrastructure/config"
)

const statusKey = "sync:catalog_status"

// RedisStatusCache implements StatusCache using Redis. Suitable when several
// instances answer status queries behind a load balancer.
type RedisStatusCache struct {
	client *redis.Client
}

// NewRedisStatusCache creates a Redis-backed status cache
func NewRedisStatusCache(cfg config.RedisConfig) (*RedisStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStatusCache{client: client}, nil
}

// NewRedisStatusCacheWithClient creates a cache with an existing Redis client
func NewRedisStatusCacheWithClient(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{client: client}
}

// Set stores the stats with the given TTL
func (c *RedisStatusCache) Set(ctx context.Context, stats *catalog.SyncStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal sync status: %w", err)
	}
	if err := c.client.Set(ctx, statusKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store sync status: %w", err)
	}
	return nil
}

// Get returns the last stored stats or shared.ErrNotFound
func (c *RedisStatusCache) Get(ctx context.Context) (*catalog.SyncStats, error) {
	data, err := c.client.Get(ctx, statusKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errNotCached
		}
		return nil, fmt.Errorf("failed to read sync status: %w", err)
	}

	var stats catalog.SyncStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync status: %w", err)
	}
	return &stats, nil
}

// Close closes the Redis client
func (c *RedisStatusCache) Close() error {
	return c.client.Close()
}

// Ensure RedisStatusCache implements StatusCache
var _ StatusCache = (*RedisStatusCache)(nil)
