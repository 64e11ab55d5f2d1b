package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	catalogapp "github.com/shoplink/backend/internal/application/catalog"
	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogRouter(t *testing.T) (*gin.Engine, *fakeItemRepo, *fakeSectionRepo, *fakeStockRepo) {
	t.Helper()

	items := &fakeItemRepo{}
	sections := &fakeSectionRepo{}
	stocks := newFakeStockRepo()

	router := gin.New()
	api := router.Group("/api/v1")
	NewCatalogHandler(
		catalogapp.NewItemService(items, stocks),
		catalogapp.NewSectionService(sections),
	).RegisterRoutes(api)

	return router, items, sections, stocks
}

func seedItem(t *testing.T, items *fakeItemRepo, externalID, name string, attrs map[string]string) *catalog.Item {
	t.Helper()
	item, err := catalog.NewItem(externalID, name)
	require.NoError(t, err)
	if attrs != nil {
		item.SetAttributes(attrs)
	}
	require.NoError(t, items.Save(context.Background(), item))
	return item
}

func TestCatalogHandler_ListItems(t *testing.T) {
	router, items, _, _ := newCatalogRouter(t)
	seedItem(t, items, "itm-1", "Shirt", nil)
	seedItem(t, items, "itm-2", "Shirt M", map[string]string{catalog.AttrParentID: "itm-1"})
	seedItem(t, items, "itm-3", "Mug", nil)

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/items", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	// Variants are folded into their base item
	assert.Equal(t, int64(2), resp.Meta.Total)
}

func TestCatalogHandler_ListItemsRejectsBadQuery(t *testing.T) {
	router, _, _, _ := newCatalogRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/items?page_size=500", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestCatalogHandler_GetItemWithVariantsAndStock(t *testing.T) {
	router, items, _, stocks := newCatalogRouter(t)
	seedItem(t, items, "itm-1", "Shirt", nil)
	seedItem(t, items, "itm-2", "Shirt M", map[string]string{catalog.AttrParentID: "itm-1", "size": "M"})

	level, err := catalog.NewStockLevel("itm-1", "store-1", decimal.NewFromInt(4))
	require.NoError(t, err)
	require.NoError(t, stocks.Upsert(context.Background(), level))

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/items/itm-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "itm-1", data["external_id"])

	variants, ok := data["variants"].([]any)
	require.True(t, ok)
	assert.Len(t, variants, 1)

	stock, ok := data["stock"].([]any)
	require.True(t, ok)
	assert.Len(t, stock, 1)
}

func TestCatalogHandler_GetUnknownItem(t *testing.T) {
	router, _, _, _ := newCatalogRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/items/ghost", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestCatalogHandler_ListSectionsAndChildren(t *testing.T) {
	router, _, sections, _ := newCatalogRouter(t)

	root, err := catalog.NewSection("sec-1", "Clothing")
	require.NoError(t, err)
	require.NoError(t, sections.Save(context.Background(), root))

	child, err := catalog.NewSection("sec-2", "Shirts")
	require.NoError(t, err)
	child.SetParent("sec-1")
	require.NoError(t, sections.Save(context.Background(), child))

	w := doRequest(router, http.MethodGet, "/api/v1/catalog/sections", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	listed, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, listed, 2)

	w = doRequest(router, http.MethodGet, "/api/v1/catalog/sections/sec-1/children", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	children, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, children, 1)

	first, ok := children[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sec-2", first["external_id"])
}
