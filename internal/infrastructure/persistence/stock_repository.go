package persistence

import (
	"context"
	"errors"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByItemAndStore finds the stock record for an item at a store
func (r *GormStockRepository) FindByItemAndStore(ctx context.Context, itemExternalID, storeExternalID string) (*catalog.StockLevel, error) {
	var level catalog.StockLevel
	if err := r.db.WithContext(ctx).
		Where("item_external_id = ? AND store_external_id = ?", itemExternalID, storeExternalID).
		First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindByItem returns all stock records for an item
func (r *GormStockRepository) FindByItem(ctx context.Context, itemExternalID string) ([]catalog.StockLevel, error) {
	var levels []catalog.StockLevel
	if err := r.db.WithContext(ctx).
		Where("item_external_id = ?", itemExternalID).
		Order("store_external_id ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// Upsert inserts or replaces the stock record for its (item, store) pair
func (r *GormStockRepository) Upsert(ctx context.Context, level *catalog.StockLevel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "item_external_id"}, {Name: "store_external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"quantity", "reserved", "price", "updated_from_feed", "updated_at",
			}),
		}).
		Create(level).Error
}

// DeleteByItem removes all stock records for an item
func (r *GormStockRepository) DeleteByItem(ctx context.Context, itemExternalID string) error {
	return r.db.WithContext(ctx).
		Delete(&catalog.StockLevel{}, "item_external_id = ?", itemExternalID).Error
}

// Ensure GormStockRepository implements StockRepository
var _ catalog.StockRepository = (*GormStockRepository)(nil)
