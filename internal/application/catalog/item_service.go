package catalog

import (
	"context"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
)

// ItemService answers catalog queries. Listings collapse variant groups to
// their base item; the variants appear on the detail view.
type ItemService struct {
	itemRepo  catalog.ItemRepository
	stockRepo catalog.StockRepository
}

// NewItemService creates a new ItemService
func NewItemService(itemRepo catalog.ItemRepository, stockRepo catalog.StockRepository) *ItemService {
	return &ItemService{
		itemRepo:  itemRepo,
		stockRepo: stockRepo,
	}
}

// List returns a page of active base items
func (s *ItemService) List(ctx context.Context, filter ItemListFilter) (shared.Paginated[ItemResponse], error) {
	repoFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	repoFilter.Search = filter.Search
	if filter.SectionExternalID != "" {
		repoFilter.Filters["section_external_id"] = filter.SectionExternalID
	}

	items, err := s.itemRepo.FindBases(ctx, repoFilter)
	if err != nil {
		return shared.Paginated[ItemResponse]{}, err
	}
	total, err := s.itemRepo.CountBases(ctx, repoFilter)
	if err != nil {
		return shared.Paginated[ItemResponse]{}, err
	}

	responses := make([]ItemResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToItemResponse(&items[i]))
	}

	return shared.NewPaginated(responses, total, repoFilter.Page, repoFilter.PageSize), nil
}

// GetByExternalID returns an item with its variants and per-store stock
func (s *ItemService) GetByExternalID(ctx context.Context, externalID string) (*ItemDetailResponse, error) {
	item, err := s.itemRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	detail := &ItemDetailResponse{
		ItemResponse: ToItemResponse(item),
		Variants:     make([]ItemResponse, 0),
		Stock:        make([]StockResponse, 0),
	}

	variants, err := s.itemRepo.FindVariants(ctx, item.ExternalID)
	if err != nil {
		return nil, err
	}
	for i := range variants {
		detail.Variants = append(detail.Variants, ToItemResponse(&variants[i]))
	}

	levels, err := s.stockRepo.FindByItem(ctx, item.ExternalID)
	if err != nil {
		return nil, err
	}
	for i := range levels {
		detail.Stock = append(detail.Stock, ToStockResponse(&levels[i]))
	}

	return detail, nil
}
