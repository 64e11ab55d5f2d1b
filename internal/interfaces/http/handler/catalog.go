package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/shoplink/backend/internal/application/catalog"
	"github.com/shoplink/backend/internal/interfaces/http/dto"
)

// CatalogHandler handles read-only catalog endpoints. The catalog is owned by
// the external system; items and sections are only ever modified by sync runs.
type CatalogHandler struct {
	BaseHandler
	itemService    *catalogapp.ItemService
	sectionService *catalogapp.SectionService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(itemService *catalogapp.ItemService, sectionService *catalogapp.SectionService) *CatalogHandler {
	return &CatalogHandler{
		itemService:    itemService,
		sectionService: sectionService,
	}
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	catalog := rg.Group("/catalog")
	{
		catalog.GET("/items", h.ListItems)
		catalog.GET("/items/:external_id", h.GetItem)
		catalog.GET("/sections", h.ListSections)
		catalog.GET("/sections/:external_id/children", h.ListSectionChildren)
	}
}

// ListItemsRequest represents the item listing query parameters
type ListItemsRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search    string `form:"search"`
	SectionID string `form:"section_id"`
}

// ListItems returns a page of active base items
func (h *CatalogHandler) ListItems(c *gin.Context) {
	var req ListItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeValidation), dto.ErrCodeValidation, "Invalid query parameters")
		return
	}

	page, err := h.itemService.List(c.Request.Context(), catalogapp.ItemListFilter{
		Page:              req.Page,
		PageSize:          req.PageSize,
		Search:            req.Search,
		SectionExternalID: req.SectionID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetItem returns an item with its variants and per-store stock
func (h *CatalogHandler) GetItem(c *gin.Context) {
	detail, err := h.itemService.GetByExternalID(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, detail)
}

// ListSections returns all active sections
func (h *CatalogHandler) ListSections(c *gin.Context) {
	sections, err := h.sectionService.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sections)
}

// ListSectionChildren returns the active child sections of a parent
func (h *CatalogHandler) ListSectionChildren(c *gin.Context) {
	sections, err := h.sectionService.Children(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sections)
}
