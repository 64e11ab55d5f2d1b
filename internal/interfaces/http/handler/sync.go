package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	syncapp "github.com/shoplink/backend/internal/application/sync"
	"github.com/shoplink/backend/internal/interfaces/http/dto"
)

// SyncHandler handles catalog sync task endpoints
type SyncHandler struct {
	BaseHandler
	syncService *syncapp.Service
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *syncapp.Service) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/catalog", h.Start)
		sync.GET("/status", h.Status)
		sync.GET("/tasks/:id", h.Get)
		sync.DELETE("/tasks/:id", h.Cancel)
	}
}

// Start queues a catalog sync task. The body is optional; omitting it runs a
// full sync.
func (h *SyncHandler) Start(c *gin.Context) {
	var req syncapp.StartSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidJSON), dto.ErrCodeInvalidJSON, "Invalid request body")
			return
		}
	}

	task, err := h.syncService.Start(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, task)
}

// Get returns the current snapshot of a sync task
func (h *SyncHandler) Get(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.syncService.Get(c.Request.Context(), taskID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, task)
}

// Cancel requests cancellation of a running or queued sync task
func (h *SyncHandler) Cancel(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.syncService.Cancel(c.Request.Context(), taskID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, task)
}

// Status reports aggregate catalog health: item totals, sync coverage and the
// time of the last successful sync
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.syncService.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}
