package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/shoplink/backend/internal/domain/catalog"
)

// ItemListFilter narrows the item listing
type ItemListFilter struct {
	Page              int
	PageSize          int
	Search            string
	SectionExternalID string
}

// ItemResponse is the API representation of a catalog item
type ItemResponse struct {
	ID                string            `json:"id"`
	ExternalID        string            `json:"external_id"`
	ExternalCode      string            `json:"external_code,omitempty"`
	Article           string            `json:"article,omitempty"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	SectionExternalID *string           `json:"section_external_id,omitempty"`
	Price             int64             `json:"price"`
	Unit              string            `json:"unit,omitempty"`
	Attributes        map[string]string `json:"attributes"`
	Status            string            `json:"status"`
	IsVariant         bool              `json:"is_variant"`
	SyncedAt          *time.Time        `json:"synced_at,omitempty"`
}

// ItemDetailResponse is an item with its variants and stock
type ItemDetailResponse struct {
	ItemResponse
	Variants []ItemResponse  `json:"variants"`
	Stock    []StockResponse `json:"stock"`
}

// StockResponse is one per-store stock record of an item
type StockResponse struct {
	StoreExternalID string          `json:"store_external_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Reserved        decimal.Decimal `json:"reserved"`
	Available       decimal.Decimal `json:"available"`
	Price           int64           `json:"price"`
	UpdatedFromFeed time.Time       `json:"updated_from_feed"`
}

// SectionResponse is the API representation of a catalog section
type SectionResponse struct {
	ID               string  `json:"id"`
	ExternalID       string  `json:"external_id"`
	ExternalCode     string  `json:"external_code,omitempty"`
	Name             string  `json:"name"`
	ParentExternalID *string `json:"parent_external_id,omitempty"`
	Status           string  `json:"status"`
}

// ToItemResponse converts a domain item to its API representation
func ToItemResponse(item *catalog.Item) ItemResponse {
	return ItemResponse{
		ID:                item.ID.String(),
		ExternalID:        item.ExternalID,
		ExternalCode:      item.ExternalCode,
		Article:           item.Article,
		Name:              item.Name,
		Description:       item.Description,
		SectionExternalID: item.SectionExternalID,
		Price:             item.Price,
		Unit:              item.Unit,
		Attributes:        item.Attributes,
		Status:            string(item.Status),
		IsVariant:         item.IsVariant(),
		SyncedAt:          item.SyncedAt,
	}
}

// ToStockResponse converts a stock level to its API representation
func ToStockResponse(level *catalog.StockLevel) StockResponse {
	return StockResponse{
		StoreExternalID: level.StoreExternalID,
		Quantity:        level.Quantity,
		Reserved:        level.Reserved,
		Available:       level.Available(),
		Price:           level.Price,
		UpdatedFromFeed: level.UpdatedFromFeed,
	}
}

// ToSectionResponse converts a domain section to its API representation
func ToSectionResponse(section *catalog.Section) SectionResponse {
	return SectionResponse{
		ID:               section.ID.String(),
		ExternalID:       section.ExternalID,
		ExternalCode:     section.ExternalCode,
		Name:             section.Name,
		ParentExternalID: section.ParentExternalID,
		Status:           string(section.Status),
	}
}
