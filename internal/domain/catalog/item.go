package catalog

import (
	"time"

	"github.com/shoplink/backend/internal/domain/shared"
)

// ItemStatus represents the status of a catalog item
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
)

// Item represents a sellable catalog item. An item may be a base item or a
// variant of another item; variants carry the parent's external identifier in
// their attribute map under AttrParentID.
type Item struct {
	shared.BaseAggregateRoot
	ExternalID        string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_item_external_id"`
	ExternalCode      string       `gorm:"type:varchar(64);index:idx_item_external_code"`
	Article           string       `gorm:"type:varchar(128);index:idx_item_article"`
	Name              string       `gorm:"type:varchar(500);not null"`
	Description       string       `gorm:"type:text"`
	SectionExternalID *string      `gorm:"type:varchar(64);index"`
	Price             int64        `gorm:"not null;default:0"` // minor currency units
	Unit              string       `gorm:"type:varchar(32)"`
	Attributes        AttributeMap `gorm:"type:jsonb"`
	Status            ItemStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	SyncStatus        string       `gorm:"type:varchar(50)"`
	SyncedAt          *time.Time
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// NewItem creates a new catalog item from feed data
func NewItem(externalID, name string) (*Item, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "Item external ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}

	item := &Item{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ExternalID:        externalID,
		Name:              name,
		Attributes:        AttributeMap{},
		Status:            ItemStatusActive,
	}

	item.AddDomainEvent(NewItemCreatedEvent(item))

	return item, nil
}

// Update updates the item's descriptive fields
func (i *Item) Update(name, description, unit string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}

	i.Name = name
	i.Description = description
	i.Unit = unit
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// SetIdentity updates the item's external code and article. Identity fields
// never shrink: an empty incoming value keeps the stored one.
func (i *Item) SetIdentity(externalCode, article string) {
	if externalCode != "" {
		i.ExternalCode = externalCode
	}
	if article != "" {
		i.Article = article
	}
	i.UpdatedAt = time.Now()
}

// SetSection assigns the item to a catalog section. The null-GUID sentinel
// and the empty string both clear the assignment.
func (i *Item) SetSection(sectionExternalID string) {
	if sectionExternalID == "" || sectionExternalID == NullGUID {
		i.SectionExternalID = nil
	} else {
		ref := sectionExternalID
		i.SectionExternalID = &ref
	}
	i.UpdatedAt = time.Now()
}

// SetPrice updates the item price in minor currency units
func (i *Item) SetPrice(price int64) error {
	if price < 0 {
		return shared.NewDomainError("INVALID_PRICE", "Item price cannot be negative")
	}
	if i.Price == price {
		return nil
	}

	oldPrice := i.Price
	i.Price = price
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemPriceChangedEvent(i, oldPrice, price))

	return nil
}

// SetAttributes replaces the item's attribute map
func (i *Item) SetAttributes(attributes AttributeMap) {
	if attributes == nil {
		attributes = AttributeMap{}
	}
	i.Attributes = attributes
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// ParentExternalID returns the external identifier of the parent item and
// whether a real parent reference is present. The null-GUID sentinel counts
// as absent.
func (i *Item) ParentExternalID() (string, bool) {
	ref, ok := i.Attributes[AttrParentID]
	if !ok || ref == "" || ref == NullGUID {
		return "", false
	}
	return ref, true
}

// IsVariant returns true if the item references a parent item
func (i *Item) IsVariant() bool {
	_, ok := i.ParentExternalID()
	return ok
}

// MarkSynced records the outcome of the sync pass that touched this item
func (i *Item) MarkSynced(status string) {
	now := time.Now()
	i.SyncStatus = status
	i.SyncedAt = &now
	i.UpdatedAt = now
}

// Activate activates the item
func (i *Item) Activate() {
	if i.Status == ItemStatusActive {
		return
	}
	i.Status = ItemStatusActive
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	i.AddDomainEvent(NewItemActivatedEvent(i))
}

// Deactivate deactivates the item. Deactivated items stay in storage and can
// be reactivated by a later feed pass.
func (i *Item) Deactivate() {
	if i.Status == ItemStatusInactive {
		return
	}
	i.Status = ItemStatusInactive
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	i.AddDomainEvent(NewItemDeactivatedEvent(i))
}

// IsActive returns true if the item is active
func (i *Item) IsActive() bool {
	return i.Status == ItemStatusActive
}
