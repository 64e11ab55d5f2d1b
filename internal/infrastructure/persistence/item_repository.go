package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormItemRepository implements ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	var item catalog.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByExternalID finds an item by its external identifier
func (r *GormItemRepository) FindByExternalID(ctx context.Context, externalID string) (*catalog.Item, error) {
	return r.findOne(ctx, "external_id = ?", externalID)
}

// FindByExternalCode finds an item by its external code
func (r *GormItemRepository) FindByExternalCode(ctx context.Context, externalCode string) (*catalog.Item, error) {
	return r.findOne(ctx, "external_code = ?", externalCode)
}

// FindByArticle finds an item by its article number
func (r *GormItemRepository) FindByArticle(ctx context.Context, article string) (*catalog.Item, error) {
	return r.findOne(ctx, "article = ?", article)
}

func (r *GormItemRepository) findOne(ctx context.Context, cond string, arg string) (*catalog.Item, error) {
	var item catalog.Item
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at ASC").
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAll finds all items matching the filter
func (r *GormItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Item, error) {
	var items []catalog.Item
	query := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Item{}), filter)

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindBases returns a page of active base items. Variants carry the parent
// reference in the attribute map, so a base row either has no reference key
// or holds the null-GUID sentinel.
func (r *GormItemRepository) FindBases(ctx context.Context, filter shared.Filter) ([]catalog.Item, error) {
	var items []catalog.Item
	query := r.applyFilter(r.baseQuery(ctx), filter)

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CountBases counts active base items matching the filter
func (r *GormItemRepository) CountBases(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.baseQuery(ctx), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormItemRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&catalog.Item{}).
		Where("status = ?", catalog.ItemStatusActive).
		Where("attributes ->> ? IS NULL OR attributes ->> ? IN ('', ?)",
			catalog.AttrParentID, catalog.AttrParentID, catalog.NullGUID)
}

// FindVariants returns the active variants of a base item
func (r *GormItemRepository) FindVariants(ctx context.Context, parentExternalID string) ([]catalog.Item, error) {
	var items []catalog.Item
	if err := r.db.WithContext(ctx).
		Where("status = ?", catalog.ItemStatusActive).
		Where("attributes ->> ? = ?", catalog.AttrParentID, parentExternalID).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates an item
func (r *GormItemRepository) Save(ctx context.Context, item *catalog.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete deletes an item
func (r *GormItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.Item{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeactivateNotIn deactivates every active item whose external ID is not in
// the given set
func (r *GormItemRepository) DeactivateNotIn(ctx context.Context, externalIDs []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&catalog.Item{}).
		Where("status = ?", catalog.ItemStatusActive)
	if len(externalIDs) > 0 {
		query = query.Where("external_id NOT IN ?", externalIDs)
	}

	result := query.Updates(map[string]interface{}{
		"status":      catalog.ItemStatusInactive,
		"sync_status": "deactivated",
	})
	return result.RowsAffected, result.Error
}

// CountByStatus counts items with the given status
func (r *GormItemRepository) CountByStatus(ctx context.Context, status catalog.ItemStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Item{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SyncStats returns aggregate sync coverage over the items table
func (r *GormItemRepository) SyncStats(ctx context.Context) (catalog.SyncStats, error) {
	var stats catalog.SyncStats

	model := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&catalog.Item{})
	}

	if err := model().Count(&stats.TotalItems).Error; err != nil {
		return stats, err
	}
	if err := model().
		Where("status = ?", catalog.ItemStatusActive).
		Count(&stats.ActiveItems).Error; err != nil {
		return stats, err
	}
	if err := model().
		Where("synced_at IS NOT NULL").
		Count(&stats.SyncedItems).Error; err != nil {
		return stats, err
	}

	var last struct {
		SyncedAt *time.Time
	}
	if err := model().
		Select("MAX(synced_at) AS synced_at").
		Scan(&last).Error; err != nil {
		return stats, err
	}
	stats.LastSyncedAt = last.SyncedAt

	return stats, nil
}

// Count counts items matching the filter
func (r *GormItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&catalog.Item{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering
	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormItemRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	// Case-insensitive search; LOWER+LIKE works on both Postgres and SQLite
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(article) LIKE ? OR LOWER(external_code) LIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	// Apply additional filters
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "section_external_id":
			if value == nil {
				query = query.Where("section_external_id IS NULL")
			} else {
				query = query.Where("section_external_id = ?", value)
			}
		case "article":
			query = query.Where("article = ?", value)
		}
	}

	return query
}

// Ensure GormItemRepository implements ItemRepository
var _ catalog.ItemRepository = (*GormItemRepository)(nil)
