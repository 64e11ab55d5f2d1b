package sync

import (
	"math"
	"time"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/sync"
)

// SyncScopeRequest narrows a sync run to part of the feed. Section matches a
// section name or external ID; Limit caps the number of imported items.
type SyncScopeRequest struct {
	Section string `json:"section"`
	Limit   int    `json:"limit" binding:"omitempty,min=1"`
}

// StartSyncRequest configures a sync run. An empty body starts a full sync
// against the configured feed; a scoped request never deactivates missing
// records regardless of the deactivate_missing flag.
type StartSyncRequest struct {
	FeedURL           string            `json:"feed_url" binding:"omitempty,url"`
	UpdateExisting    *bool             `json:"update_existing"`
	DeactivateMissing *bool             `json:"deactivate_missing"`
	Scope             *SyncScopeRequest `json:"scope"`
}

// ToOptions converts the request into run options. Omitted flags default to
// true, and scope filters force deactivation off.
func (r StartSyncRequest) ToOptions() sync.Options {
	opts := sync.DefaultOptions()
	opts.FeedURL = r.FeedURL
	if r.UpdateExisting != nil {
		opts.UpdateExisting = *r.UpdateExisting
	}
	if r.DeactivateMissing != nil {
		opts.DeactivateMissing = *r.DeactivateMissing
	}
	if r.Scope != nil {
		opts.ScopeSection = r.Scope.Section
		opts.ScopeLimit = r.Scope.Limit
	}
	if opts.IsScoped() {
		opts.DeactivateMissing = false
	}
	return opts
}

// LogLineResponse is one progress line of a task
type LogLineResponse struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// TaskResponse is the API representation of a sync task
type TaskResponse struct {
	ID         string            `json:"id"`
	State      string            `json:"state"`
	Stage      string            `json:"stage,omitempty"`
	StageLabel string            `json:"stage_label,omitempty"`
	Percent    int               `json:"percent"`
	Current    int               `json:"current"`
	Total      int               `json:"total"`
	Options    sync.Options      `json:"options"`
	Summary    sync.Summary      `json:"summary"`
	Error      string            `json:"error,omitempty"`
	Log        []LogLineResponse `json:"log"`
	CreatedAt  time.Time         `json:"created_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// ToTaskResponse converts a task snapshot to its API representation
func ToTaskResponse(task *sync.Task) TaskResponse {
	log := make([]LogLineResponse, 0, len(task.Log))
	for _, line := range task.Log {
		log = append(log, LogLineResponse{At: line.At, Level: line.Level, Message: line.Message})
	}

	return TaskResponse{
		ID:         task.ID.String(),
		State:      string(task.State),
		Stage:      task.Stage,
		StageLabel: task.StageLabel,
		Percent:    task.Percent,
		Current:    task.Current,
		Total:      task.Total,
		Options:    task.Options,
		Summary:    task.Summary,
		Error:      task.Error,
		Log:        log,
		CreatedAt:  task.CreatedAt,
		StartedAt:  task.StartedAt,
		FinishedAt: task.FinishedAt,
	}
}

// CatalogStatusResponse reports aggregate catalog health, independent of any
// particular sync task
type CatalogStatusResponse struct {
	TotalItems  int64      `json:"total_items"`
	ActiveItems int64      `json:"active_items"`
	SyncedItems int64      `json:"synced_items"`
	Coverage    float64    `json:"coverage"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
}

// ToCatalogStatusResponse converts sync stats to the API representation.
// Coverage is the share of items carrying sync metadata, in percent.
func ToCatalogStatusResponse(stats catalog.SyncStats) CatalogStatusResponse {
	var coverage float64
	if stats.TotalItems > 0 {
		coverage = math.Round(float64(stats.SyncedItems)/float64(stats.TotalItems)*10000) / 100
	}
	return CatalogStatusResponse{
		TotalItems:  stats.TotalItems,
		ActiveItems: stats.ActiveItems,
		SyncedItems: stats.SyncedItems,
		Coverage:    coverage,
		LastSyncAt:  stats.LastSyncedAt,
	}
}
