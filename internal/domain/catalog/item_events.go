package catalog

import "github.com/shoplink/backend/internal/domain/shared"

// Item event types
const (
	EventTypeItemCreated      = "catalog.item.created"
	EventTypeItemPriceChanged = "catalog.item.price_changed"
	EventTypeItemActivated    = "catalog.item.activated"
	EventTypeItemDeactivated  = "catalog.item.deactivated"
)

// ItemCreatedEvent is raised when a new item is created
type ItemCreatedEvent struct {
	shared.BaseDomainEvent
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

// NewItemCreatedEvent creates a new item created event
func NewItemCreatedEvent(item *Item) *ItemCreatedEvent {
	return &ItemCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemCreated, "Item", item.ID),
		ExternalID:      item.ExternalID,
		Name:            item.Name,
	}
}

// ItemPriceChangedEvent is raised when an item's price changes
type ItemPriceChangedEvent struct {
	shared.BaseDomainEvent
	ExternalID string `json:"external_id"`
	OldPrice   int64  `json:"old_price"`
	NewPrice   int64  `json:"new_price"`
}

// NewItemPriceChangedEvent creates a new price changed event
func NewItemPriceChangedEvent(item *Item, oldPrice, newPrice int64) *ItemPriceChangedEvent {
	return &ItemPriceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemPriceChanged, "Item", item.ID),
		ExternalID:      item.ExternalID,
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
	}
}

// ItemActivatedEvent is raised when an item becomes active
type ItemActivatedEvent struct {
	shared.BaseDomainEvent
	ExternalID string `json:"external_id"`
}

// NewItemActivatedEvent creates a new item activated event
func NewItemActivatedEvent(item *Item) *ItemActivatedEvent {
	return &ItemActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemActivated, "Item", item.ID),
		ExternalID:      item.ExternalID,
	}
}

// ItemDeactivatedEvent is raised when an item is deactivated
type ItemDeactivatedEvent struct {
	shared.BaseDomainEvent
	ExternalID string `json:"external_id"`
}

// NewItemDeactivatedEvent creates a new item deactivated event
func NewItemDeactivatedEvent(item *Item) *ItemDeactivatedEvent {
	return &ItemDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemDeactivated, "Item", item.ID),
		ExternalID:      item.ExternalID,
	}
}
