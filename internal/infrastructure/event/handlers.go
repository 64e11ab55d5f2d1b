package event

import (
	"context"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CatalogChangeLogger logs catalog mutations raised during sync runs. It is
// the default subscriber wired at startup; price changes are logged at info
// so feed-driven repricing is visible in the log stream.
type CatalogChangeLogger struct {
	logger *zap.Logger
}

// NewCatalogChangeLogger creates a new catalog change logger
func NewCatalogChangeLogger(logger *zap.Logger) *CatalogChangeLogger {
	return &CatalogChangeLogger{logger: logger.Named("catalog-events")}
}

// EventTypes returns the event types this handler is interested in
func (h *CatalogChangeLogger) EventTypes() []string {
	return []string{
		catalog.EventTypeItemCreated,
		catalog.EventTypeItemPriceChanged,
		catalog.EventTypeItemActivated,
		catalog.EventTypeItemDeactivated,
		catalog.EventTypeSectionCreated,
	}
}

// Handle processes a domain event
func (h *CatalogChangeLogger) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *catalog.ItemPriceChangedEvent:
		h.logger.Info("item price changed",
			zap.String("external_id", e.ExternalID),
			zap.Int64("old_price", e.OldPrice),
			zap.Int64("new_price", e.NewPrice),
		)
	case *catalog.ItemCreatedEvent:
		h.logger.Debug("item created",
			zap.String("external_id", e.ExternalID),
			zap.String("name", e.Name),
		)
	case *catalog.ItemDeactivatedEvent:
		h.logger.Info("item deactivated",
			zap.String("external_id", e.ExternalID),
		)
	case *catalog.ItemActivatedEvent:
		h.logger.Info("item reactivated",
			zap.String("external_id", e.ExternalID),
		)
	case *catalog.SectionCreatedEvent:
		h.logger.Debug("section created",
			zap.String("external_id", e.ExternalID),
			zap.String("name", e.Name),
		)
	default:
		h.logger.Debug("catalog event",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
		)
	}
	return nil
}

// Ensure CatalogChangeLogger implements EventHandler
var _ shared.EventHandler = (*CatalogChangeLogger)(nil)
