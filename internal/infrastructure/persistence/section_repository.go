package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormSectionRepository implements SectionRepository using GORM
type GormSectionRepository struct {
	db *gorm.DB
}

// NewGormSectionRepository creates a new GormSectionRepository
func NewGormSectionRepository(db *gorm.DB) *GormSectionRepository {
	return &GormSectionRepository{db: db}
}

// FindByID finds a section by its ID
func (r *GormSectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Section, error) {
	var section catalog.Section
	if err := r.db.WithContext(ctx).First(&section, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// FindByExternalID finds a section by its external identifier
func (r *GormSectionRepository) FindByExternalID(ctx context.Context, externalID string) (*catalog.Section, error) {
	var section catalog.Section
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&section).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// FindAll finds all sections matching the filter
func (r *GormSectionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Section, error) {
	var sections []catalog.Section
	query := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Section{}), filter)

	if err := query.Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

// FindActive returns all active sections ordered by name
func (r *GormSectionRepository) FindActive(ctx context.Context) ([]catalog.Section, error) {
	var sections []catalog.Section
	if err := r.db.WithContext(ctx).
		Where("status = ?", catalog.SectionStatusActive).
		Order("name ASC").
		Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

// FindChildren returns the active child sections of a parent
func (r *GormSectionRepository) FindChildren(ctx context.Context, parentExternalID string) ([]catalog.Section, error) {
	var sections []catalog.Section
	if err := r.db.WithContext(ctx).
		Where("parent_external_id = ? AND status = ?", parentExternalID, catalog.SectionStatusActive).
		Order("name ASC").
		Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

// Save creates or updates a section
func (r *GormSectionRepository) Save(ctx context.Context, section *catalog.Section) error {
	return r.db.WithContext(ctx).Save(section).Error
}

// Delete deletes a section
func (r *GormSectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.Section{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeactivateNotIn deactivates every active section whose external ID is not
// in the given set
func (r *GormSectionRepository) DeactivateNotIn(ctx context.Context, externalIDs []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&catalog.Section{}).
		Where("status = ?", catalog.SectionStatusActive)
	if len(externalIDs) > 0 {
		query = query.Where("external_id NOT IN ?", externalIDs)
	}

	result := query.Updates(map[string]interface{}{
		"status":      catalog.SectionStatusInactive,
		"sync_status": "deactivated",
	})
	return result.RowsAffected, result.Error
}

// Count counts sections matching the filter
func (r *GormSectionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&catalog.Section{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormSectionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
func (r *GormSectionRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	// Case-insensitive search; LOWER+LIKE works on both Postgres and SQLite
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(external_code) LIKE ?", searchPattern, searchPattern)
	}

	// Apply additional filters
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "parent_external_id":
			if value == nil {
				query = query.Where("parent_external_id IS NULL")
			} else {
				query = query.Where("parent_external_id = ?", value)
			}
		}
	}

	return query
}

// Ensure GormSectionRepository implements SectionRepository
var _ catalog.SectionRepository = (*GormSectionRepository)(nil)
