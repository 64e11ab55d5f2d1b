package sync

import (
	"context"
	"errors"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	"github.com/shoplink/backend/internal/domain/sync"
	"github.com/shoplink/backend/internal/infrastructure/feed"
	"go.uber.org/zap"
)

// StockMerger upserts offers feed rows into stock levels. Each (item, store)
// pair owns exactly one row; a later feed run overwrites it.
type StockMerger struct {
	stockRepo catalog.StockRepository
	itemRepo  catalog.ItemRepository
	eventBus  shared.EventPublisher
	logger    *zap.Logger
}

// NewStockMerger creates a stock merger
func NewStockMerger(stockRepo catalog.StockRepository, itemRepo catalog.ItemRepository, eventBus shared.EventPublisher, logger *zap.Logger) *StockMerger {
	return &StockMerger{
		stockRepo: stockRepo,
		itemRepo:  itemRepo,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Merge applies offer rows to storage. Rows for unknown items are counted as
// failures and skipped; the offers feed routinely runs ahead of the catalog.
func (m *StockMerger) Merge(ctx context.Context, rows []feed.OfferRow, summary *sync.Summary) error {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.mergeRow(ctx, row); err != nil {
			summary.StockFailed++
			m.logger.Debug("stock row skipped",
				zap.String("item_external_id", row.ItemExternalID),
				zap.String("store_external_id", row.StoreExternalID),
				zap.Error(err),
			)
			continue
		}
		summary.StockUpserted++
	}
	return nil
}

func (m *StockMerger) mergeRow(ctx context.Context, row feed.OfferRow) error {
	item, err := m.itemRepo.FindByExternalID(ctx, row.ItemExternalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("UNKNOWN_ITEM", "Offer references an item the catalog does not have")
		}
		return err
	}

	level, err := catalog.NewStockLevel(row.ItemExternalID, row.StoreExternalID, row.Quantity)
	if err != nil {
		return err
	}
	if err := level.Apply(row.Quantity, row.Reserved, row.Price); err != nil {
		return err
	}
	if err := m.stockRepo.Upsert(ctx, level); err != nil {
		return err
	}

	// The offers feed is the authoritative price source; a row without a
	// price leaves the catalog price alone
	if row.Price > 0 && item.Price != row.Price {
		if err := item.SetPrice(row.Price); err != nil {
			return err
		}
		if err := m.itemRepo.Save(ctx, item); err != nil {
			return err
		}
		m.publishEvents(ctx, item)
	}

	return nil
}

func (m *StockMerger) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := m.eventBus.Publish(ctx, events...); err != nil {
		m.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
