package catalog

import "context"

// StockRepository defines the interface for stock level persistence
type StockRepository interface {
	// FindByItemAndStore finds the stock record for an item at a store
	FindByItemAndStore(ctx context.Context, itemExternalID, storeExternalID string) (*StockLevel, error)

	// FindByItem returns all stock records for an item
	FindByItem(ctx context.Context, itemExternalID string) ([]StockLevel, error)

	// Upsert inserts or replaces the stock record for its (item, store) pair
	Upsert(ctx context.Context, level *StockLevel) error

	// DeleteByItem removes all stock records for an item
	DeleteByItem(ctx context.Context, itemExternalID string) error
}
