package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/shoplink/backend/internal/domain/shared"
)

// StockLevel records the quantity of an item at one store. One row exists per
// (item, store) pair and is upserted by the offers merge pass.
type StockLevel struct {
	shared.BaseEntity
	ItemExternalID  string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_stock_item_store,priority:1"`
	StoreExternalID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_stock_item_store,priority:2"`
	Quantity        decimal.Decimal `gorm:"type:decimal(15,3);not null"`
	Reserved        decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0"`
	Price           int64           `gorm:"not null;default:0"` // minor currency units
	UpdatedFromFeed time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevel) TableName() string {
	return "stock_levels"
}

// NewStockLevel creates a stock record for an item at a store
func NewStockLevel(itemExternalID, storeExternalID string, quantity decimal.Decimal) (*StockLevel, error) {
	if itemExternalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "Stock item external ID cannot be empty")
	}
	if storeExternalID == "" {
		return nil, shared.NewDomainError("INVALID_STORE_ID", "Stock store external ID cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	}

	return &StockLevel{
		BaseEntity:      shared.NewBaseEntity(),
		ItemExternalID:  itemExternalID,
		StoreExternalID: storeExternalID,
		Quantity:        quantity,
		Reserved:        decimal.Zero,
		UpdatedFromFeed: time.Now(),
	}, nil
}

// Apply overwrites the record with the latest feed values
func (s *StockLevel) Apply(quantity, reserved decimal.Decimal, price int64) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	}
	if reserved.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserved quantity cannot be negative")
	}
	if price < 0 {
		return shared.NewDomainError("INVALID_PRICE", "Stock price cannot be negative")
	}

	s.Quantity = quantity
	s.Reserved = reserved
	s.Price = price
	s.UpdatedFromFeed = time.Now()
	s.UpdatedAt = s.UpdatedFromFeed

	return nil
}

// Available returns the quantity available for sale
func (s *StockLevel) Available() decimal.Decimal {
	available := s.Quantity.Sub(s.Reserved)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}
