package catalog

import (
	"context"
	"time"

	"github.com/shoplink/backend/internal/domain/shared"
)

// SyncStats aggregates sync coverage over the whole item catalog
type SyncStats struct {
	TotalItems   int64      `json:"total_items"`
	ActiveItems  int64      `json:"active_items"`
	SyncedItems  int64      `json:"synced_items"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// ItemRepository defines the interface for item persistence
type ItemRepository interface {
	shared.Repository[Item]

	// FindByExternalID finds an item by its external identifier
	FindByExternalID(ctx context.Context, externalID string) (*Item, error)

	// FindByExternalCode finds an item by its external code
	FindByExternalCode(ctx context.Context, externalCode string) (*Item, error)

	// FindByArticle finds an item by its article number
	FindByArticle(ctx context.Context, article string) (*Item, error)

	// FindBases returns a page of active base items (items without a parent
	// reference), so that variant groups appear once in listings
	FindBases(ctx context.Context, filter shared.Filter) ([]Item, error)

	// CountBases counts active base items matching the filter
	CountBases(ctx context.Context, filter shared.Filter) (int64, error)

	// FindVariants returns the active variants of a base item
	FindVariants(ctx context.Context, parentExternalID string) ([]Item, error)

	// DeactivateNotIn deactivates every active item whose external ID is not
	// in the given set and returns the number of affected rows
	DeactivateNotIn(ctx context.Context, externalIDs []string) (int64, error)

	// CountByStatus counts items with the given status
	CountByStatus(ctx context.Context, status ItemStatus) (int64, error)

	// SyncStats returns aggregate sync coverage for status reporting
	SyncStats(ctx context.Context) (SyncStats, error)
}
