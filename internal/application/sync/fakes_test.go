package sync

import (
	"context"
	"io"
	"strings"
	gosync "sync"

	"github.com/google/uuid"
	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
)

// fakeItemRepo is an in-memory catalog.ItemRepository for service tests
type fakeItemRepo struct {
	mu      gosync.Mutex
	items   []*catalog.Item
	saveErr map[string]error
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{saveErr: make(map[string]error)}
}

func (r *fakeItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			copied := *item
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeItemRepo) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, nil
}

func (r *fakeItemRepo) Save(ctx context.Context, item *catalog.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveErr[item.ExternalID]; err != nil {
		return err
	}
	for i, existing := range r.items {
		if existing.ID == item.ID {
			copied := *item
			r.items[i] = &copied
			return nil
		}
	}
	copied := *item
	r.items = append(r.items, &copied)
	return nil
}

func (r *fakeItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *fakeItemRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *fakeItemRepo) FindByExternalID(ctx context.Context, externalID string) (*catalog.Item, error) {
	return r.findBy(func(i *catalog.Item) bool { return i.ExternalID == externalID })
}

func (r *fakeItemRepo) FindByExternalCode(ctx context.Context, externalCode string) (*catalog.Item, error) {
	return r.findBy(func(i *catalog.Item) bool { return i.ExternalCode == externalCode })
}

func (r *fakeItemRepo) FindByArticle(ctx context.Context, article string) (*catalog.Item, error) {
	return r.findBy(func(i *catalog.Item) bool { return i.Article == article })
}

func (r *fakeItemRepo) findBy(match func(*catalog.Item) bool) (*catalog.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if match(item) {
			copied := *item
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeItemRepo) FindBases(ctx context.Context, filter shared.Filter) ([]catalog.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Item, 0)
	for _, item := range r.items {
		if item.IsActive() && !item.IsVariant() {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) CountBases(ctx context.Context, filter shared.Filter) (int64, error) {
	bases, _ := r.FindBases(ctx, filter)
	return int64(len(bases)), nil
}

func (r *fakeItemRepo) FindVariants(ctx context.Context, parentExternalID string) ([]catalog.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Item, 0)
	for _, item := range r.items {
		parent, ok := item.ParentExternalID()
		if ok && parent == parentExternalID && item.IsActive() {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) DeactivateNotIn(ctx context.Context, externalIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[string]bool, len(externalIDs))
	for _, id := range externalIDs {
		keep[id] = true
	}
	var affected int64
	for _, item := range r.items {
		if item.IsActive() && !keep[item.ExternalID] {
			item.Deactivate()
			affected++
		}
	}
	return affected, nil
}

func (r *fakeItemRepo) CountByStatus(ctx context.Context, status catalog.ItemStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, item := range r.items {
		if item.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeItemRepo) SyncStats(ctx context.Context) (catalog.SyncStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := catalog.SyncStats{TotalItems: int64(len(r.items))}
	for _, item := range r.items {
		if item.IsActive() {
			stats.ActiveItems++
		}
		if item.SyncedAt != nil {
			stats.SyncedItems++
			if stats.LastSyncedAt == nil || item.SyncedAt.After(*stats.LastSyncedAt) {
				syncedAt := *item.SyncedAt
				stats.LastSyncedAt = &syncedAt
			}
		}
	}
	return stats, nil
}

func (r *fakeItemRepo) get(externalID string) *catalog.Item {
	item, _ := r.FindByExternalID(context.Background(), externalID)
	return item
}

var _ catalog.ItemRepository = (*fakeItemRepo)(nil)

// fakeSectionRepo is an in-memory catalog.SectionRepository
type fakeSectionRepo struct {
	mu       gosync.Mutex
	sections []*catalog.Section
}

func newFakeSectionRepo() *fakeSectionRepo {
	return &fakeSectionRepo{}
}

func (r *fakeSectionRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, section := range r.sections {
		if section.ID == id {
			copied := *section
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSectionRepo) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Section, 0, len(r.sections))
	for _, section := range r.sections {
		out = append(out, *section)
	}
	return out, nil
}

func (r *fakeSectionRepo) Save(ctx context.Context, section *catalog.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.sections {
		if existing.ID == section.ID {
			copied := *section
			r.sections[i] = &copied
			return nil
		}
	}
	copied := *section
	r.sections = append(r.sections, &copied)
	return nil
}

func (r *fakeSectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return shared.ErrNotFound
}

func (r *fakeSectionRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sections)), nil
}

func (r *fakeSectionRepo) FindByExternalID(ctx context.Context, externalID string) (*catalog.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, section := range r.sections {
		if section.ExternalID == externalID {
			copied := *section
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSectionRepo) FindActive(ctx context.Context) ([]catalog.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Section, 0)
	for _, section := range r.sections {
		if section.IsActive() {
			out = append(out, *section)
		}
	}
	return out, nil
}

func (r *fakeSectionRepo) FindChildren(ctx context.Context, parentExternalID string) ([]catalog.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Section, 0)
	for _, section := range r.sections {
		if section.ParentExternalID != nil && *section.ParentExternalID == parentExternalID && section.IsActive() {
			out = append(out, *section)
		}
	}
	return out, nil
}

func (r *fakeSectionRepo) DeactivateNotIn(ctx context.Context, externalIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[string]bool, len(externalIDs))
	for _, id := range externalIDs {
		keep[id] = true
	}
	var affected int64
	for _, section := range r.sections {
		if section.IsActive() && !keep[section.ExternalID] {
			section.Deactivate()
			affected++
		}
	}
	return affected, nil
}

func (r *fakeSectionRepo) get(externalID string) *catalog.Section {
	section, _ := r.FindByExternalID(context.Background(), externalID)
	return section
}

var _ catalog.SectionRepository = (*fakeSectionRepo)(nil)

// fakeStockRepo is an in-memory catalog.StockRepository
type fakeStockRepo struct {
	mu     gosync.Mutex
	levels map[string]*catalog.StockLevel
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{levels: make(map[string]*catalog.StockLevel)}
}

func stockKey(itemExternalID, storeExternalID string) string {
	return itemExternalID + "|" + storeExternalID
}

func (r *fakeStockRepo) FindByItemAndStore(ctx context.Context, itemExternalID, storeExternalID string) (*catalog.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	level, ok := r.levels[stockKey(itemExternalID, storeExternalID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *level
	return &copied, nil
}

func (r *fakeStockRepo) FindByItem(ctx context.Context, itemExternalID string) ([]catalog.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.StockLevel, 0)
	for _, level := range r.levels {
		if level.ItemExternalID == itemExternalID {
			out = append(out, *level)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) Upsert(ctx context.Context, level *catalog.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *level
	r.levels[stockKey(level.ItemExternalID, level.StoreExternalID)] = &copied
	return nil
}

func (r *fakeStockRepo) DeleteByItem(ctx context.Context, itemExternalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, level := range r.levels {
		if level.ItemExternalID == itemExternalID {
			delete(r.levels, key)
		}
	}
	return nil
}

var _ catalog.StockRepository = (*fakeStockRepo)(nil)

// fakeFetcher serves static feed documents. When block is set, FetchCatalog
// waits for the channel or context so tests can hold a task in running state.
type fakeFetcher struct {
	catalogXML string
	offersCSV  string
	catalogErr error
	offersErr  error
	block      chan struct{}

	mu             gosync.Mutex
	lastCatalogURL string
	lastCtx        context.Context
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.lastCatalogURL = url
	f.lastCtx = ctx
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return io.NopCloser(strings.NewReader(f.catalogXML)), nil
}

func (f *fakeFetcher) FetchOffers(ctx context.Context) (io.ReadCloser, error) {
	if f.offersErr != nil {
		return nil, f.offersErr
	}
	if f.offersCSV == "" {
		return nil, nil
	}
	return io.NopCloser(strings.NewReader(f.offersCSV)), nil
}

var _ FeedFetcher = (*fakeFetcher)(nil)

// nopPublisher drops domain events
type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return nil
}
