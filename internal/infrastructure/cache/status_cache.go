package cache

import (
	"context"
	"time"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
)

// StatusCache stores the aggregate catalog sync stats so status queries do
// not hit the items table on every poll.
type StatusCache interface {
	// Set stores the stats with the given TTL
	Set(ctx context.Context, stats *catalog.SyncStats, ttl time.Duration) error

	// Get returns the last stored stats or shared.ErrNotFound
	Get(ctx context.Context) (*catalog.SyncStats, error)

	// Close releases the underlying resources
	Close() error
}

// errNotCached is what both implementations return for a cache miss
var errNotCached = shared.ErrNotFound
