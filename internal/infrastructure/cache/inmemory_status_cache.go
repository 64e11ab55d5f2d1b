package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shoplink/backend/internal/domain/catalog"
)

// InMemoryStatusCache implements StatusCache in process memory. Suitable for
// single-instance deployments and testing.
type InMemoryStatusCache struct {
	mu        sync.RWMutex
	stats     *catalog.SyncStats
	expiresAt time.Time
}

// NewInMemoryStatusCache creates an in-memory status cache
func NewInMemoryStatusCache() *InMemoryStatusCache {
	return &InMemoryStatusCache{}
}

// Set stores the stats with the given TTL
func (c *InMemoryStatusCache) Set(ctx context.Context, stats *catalog.SyncStats, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *stats
	c.stats = &copied
	c.expiresAt = time.Now().Add(ttl)
	return nil
}

// Get returns the last stored stats or shared.ErrNotFound
func (c *InMemoryStatusCache) Get(ctx context.Context) (*catalog.SyncStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stats == nil || time.Now().After(c.expiresAt) {
		return nil, errNotCached
	}
	copied := *c.stats
	return &copied, nil
}

// Close is a no-op for the in-memory cache
func (c *InMemoryStatusCache) Close() error {
	return nil
}

// Ensure InMemoryStatusCache implements StatusCache
var _ StatusCache = (*InMemoryStatusCache)(nil)
