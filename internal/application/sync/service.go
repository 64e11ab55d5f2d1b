package sync

import (
	"context"
	"fmt"
	"io"
	gosync "sync"

	"github.com/google/uuid"
	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	"github.com/shoplink/backend/internal/domain/sync"
	"github.com/shoplink/backend/internal/infrastructure/cache"
	"github.com/shoplink/backend/internal/infrastructure/config"
	"github.com/shoplink/backend/internal/infrastructure/feed"
	"github.com/shoplink/backend/internal/infrastructure/logger"
	"github.com/shoplink/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Sync stage names, reported through task snapshots
const (
	StageFetch      = "fetch"
	StageSections   = "sections"
	StageItems      = "items"
	StageDeactivate = "deactivate"
	StageStock      = "stock"
)

// stageLabels maps stage tags to the human descriptions pollers display
var stageLabels = map[string]string{
	StageFetch:      "Fetching catalog feed",
	StageSections:   "Importing sections",
	StageItems:      "Importing items",
	StageDeactivate: "Deactivating missing records",
	StageStock:      "Merging stock and prices",
}

// FeedFetcher fetches the upstream feed documents. An empty catalog URL means
// the configured default location.
type FeedFetcher interface {
	FetchCatalog(ctx context.Context, url string) (io.ReadCloser, error)
	FetchOffers(ctx context.Context) (io.ReadCloser, error)
}

// Service runs catalog sync tasks. At most one task is active at a time;
// finished tasks stay pollable until the registry expires them.
type Service struct {
	fetcher     FeedFetcher
	reconciler  *Reconciler
	merger      *StockMerger
	itemRepo    catalog.ItemRepository
	registry    sync.TaskRegistry
	statusCache cache.StatusCache
	cfg         config.SyncConfig
	logger      *zap.Logger

	mu      gosync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewService creates the sync service
func NewService(
	fetcher FeedFetcher,
	reconciler *Reconciler,
	merger *StockMerger,
	itemRepo catalog.ItemRepository,
	registry sync.TaskRegistry,
	statusCache cache.StatusCache,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		fetcher:     fetcher,
		reconciler:  reconciler,
		merger:      merger,
		itemRepo:    itemRepo,
		registry:    registry,
		statusCache: statusCache,
		cfg:         cfg,
		logger:      logger,
		cancels:     make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start queues a sync task and launches its worker. Returns
// shared.ErrSyncInProgress when another task is still queued or running.
func (s *Service) Start(ctx context.Context, req StartSyncRequest) (*TaskResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if !tasks[i].State.IsTerminal() {
			return nil, shared.ErrSyncInProgress
		}
	}

	opts := req.ToOptions()
	task := sync.NewTask(opts)
	task.AppendLog("info", "sync task queued")
	if err := s.registry.Put(ctx, task); err != nil {
		return nil, err
	}

	// The worker outlives the request, so it gets its own context
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancels[task.ID] = cancel

	go s.run(runCtx, task.ID, opts)

	s.logger.Info("sync task started",
		zap.String("task_id", task.ID.String()),
		zap.Bool("scoped", opts.IsScoped()),
		zap.Bool("deactivate_missing", opts.DeactivateMissing),
	)

	response := ToTaskResponse(task)
	return &response, nil
}

// Get returns the current snapshot of a task, or sync.ErrTaskNotFound
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTaskResponse(task)
	return &response, nil
}

// Cancel cancels a queued or running task. Cancelling a finished task returns
// an INVALID_TASK_STATE error.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.State.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_TASK_STATE", "Task already finished")
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()

	err = s.registry.Update(ctx, id, func(t *sync.Task) {
		if t.State.IsTerminal() {
			return
		}
		_ = t.Cancel()
		t.AppendLog("warn", "sync task cancelled")
	})
	if err != nil {
		return nil, err
	}

	task, err = s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sync task cancelled", zap.String("task_id", id.String()))

	response := ToTaskResponse(task)
	return &response, nil
}

// Status reports aggregate catalog health independent of any task. Results
// are cached briefly so polling dashboards do not hammer the items table.
func (s *Service) Status(ctx context.Context) (*CatalogStatusResponse, error) {
	if s.statusCache != nil {
		if cached, err := s.statusCache.Get(ctx); err == nil {
			response := ToCatalogStatusResponse(*cached)
			return &response, nil
		}
	}

	stats, err := s.itemRepo.SyncStats(ctx)
	if err != nil {
		return nil, err
	}

	if s.statusCache != nil {
		if err := s.statusCache.Set(ctx, &stats, s.cfg.StatusCacheTTL); err != nil {
			s.logger.Warn("failed to cache sync status", zap.Error(err))
		}
	}

	response := ToCatalogStatusResponse(stats)
	return &response, nil
}

// run executes one sync task to a terminal state
func (s *Service) run(ctx context.Context, taskID uuid.UUID, opts sync.Options) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync worker panic",
				zap.String("task_id", taskID.String()),
				zap.Any("panic", r),
			)
			s.finish(taskID, func(t *sync.Task) {
				_ = t.Fail(fmt.Sprintf("internal error: %v", r))
			})
		}
		s.mu.Lock()
		if cancel, ok := s.cancels[taskID]; ok {
			cancel()
			delete(s.cancels, taskID)
		}
		s.mu.Unlock()
	}()

	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_sync", "run",
		telemetry.WithAttribute(telemetry.SpanAttrTaskID, taskID.String()),
	)
	defer span.End()

	// Every log line below, down to the SQL logger, carries the task ID
	ctx, runLog := logger.WithTaskID(ctx, s.logger, taskID.String())

	_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
		if t.State != sync.TaskStateQueued {
			return
		}
		_ = t.Start()
	})

	summary := sync.Summary{}

	catalogDoc, fatal := s.fetchAndParse(ctx, taskID, opts.FeedURL, &summary)
	if fatal != nil {
		telemetry.RecordError(span, fatal)
		s.fail(ctx, taskID, fatal)
		return
	}

	itemNodes := applyScope(catalogDoc, opts)
	if len(itemNodes) != len(catalogDoc.Items) {
		_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
			t.AppendLog("info", fmt.Sprintf("scope filter narrowed the feed to %d of %d items",
				len(itemNodes), len(catalogDoc.Items)))
		})
	}

	s.stage(ctx, taskID, StageSections)
	seenSections, err := s.reconciler.ReconcileSections(ctx, catalogDoc.Sections, &summary)
	if s.stopOnErr(ctx, taskID, summary, err) {
		return
	}
	s.progress(ctx, taskID, summary, fmt.Sprintf("sections pass done: %d created, %d updated",
		summary.SectionsCreated, summary.SectionsUpdated))

	s.stage(ctx, taskID, StageItems)
	seenItems, err := s.reconciler.ReconcileItems(ctx, itemNodes, opts.UpdateExisting, seenSections, &summary,
		func(current, total int) {
			_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
				if t.State.IsTerminal() {
					return
				}
				t.SetProgress(current, total)
			})
		})
	if s.stopOnErr(ctx, taskID, summary, err) {
		return
	}
	s.progress(ctx, taskID, summary, fmt.Sprintf("items pass done: %d created, %d updated, %d skipped, %d failed",
		summary.ItemsCreated, summary.ItemsUpdated, summary.ItemsSkipped, summary.ItemsFailed))

	// A scoped run never deactivates, and an empty catalog is treated as a
	// broken export rather than a mass delisting
	if opts.DeactivateMissing && !opts.IsScoped() && len(itemNodes) > 0 {
		s.stage(ctx, taskID, StageDeactivate)
		err = s.reconciler.DeactivateMissing(ctx, seenSections, seenItems, &summary)
		if s.stopOnErr(ctx, taskID, summary, err) {
			return
		}
		s.progress(ctx, taskID, summary, fmt.Sprintf("deactivation pass done: %d items, %d sections",
			summary.ItemsDeactivated, summary.SectionsDeactivated))
	}

	s.stage(ctx, taskID, StageStock)
	if err := s.mergeStock(ctx, taskID, &summary); err != nil {
		if s.stopOnErr(ctx, taskID, summary, err) {
			return
		}
	}

	telemetry.SetAttributes(span,
		"items_created", summary.ItemsCreated,
		"items_updated", summary.ItemsUpdated,
		"items_failed", summary.ItemsFailed,
	)

	s.finish(taskID, func(t *sync.Task) {
		t.Summary = summary
		t.AppendLog("info", "sync completed")
		_ = t.Complete()
	})

	runLog.Info("sync task completed",
		zap.Int("items_created", summary.ItemsCreated),
		zap.Int("items_updated", summary.ItemsUpdated),
		zap.Int("items_skipped", summary.ItemsSkipped),
		zap.Int("items_failed", summary.ItemsFailed),
	)
}

// applyScope narrows the parsed item list per the run options. The section
// filter matches a section's external ID or name; the limit caps the list in
// feed order.
func applyScope(doc *feed.Catalog, opts sync.Options) []feed.ItemNode {
	items := doc.Items

	if opts.ScopeSection != "" {
		wanted := map[string]bool{opts.ScopeSection: true}
		for _, section := range doc.Sections {
			if section.Name == opts.ScopeSection {
				wanted[section.ExternalID] = true
			}
		}
		filtered := make([]feed.ItemNode, 0, len(items))
		for _, item := range items {
			if wanted[item.SectionExternalID] {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if opts.ScopeLimit > 0 && len(items) > opts.ScopeLimit {
		items = items[:opts.ScopeLimit]
	}

	return items
}

// fetchAndParse downloads and parses the catalog feed. Any error here is
// fatal for the run; there is nothing to reconcile without a catalog.
// Skipped nodes are counted into the summary, not treated as fatal.
func (s *Service) fetchAndParse(ctx context.Context, taskID uuid.UUID, feedURL string, summary *sync.Summary) (*feed.Catalog, error) {
	s.stage(ctx, taskID, StageFetch)

	body, err := s.fetcher.FetchCatalog(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("catalog feed unavailable: %w", err)
	}
	defer body.Close()

	parser := feed.NewCatalogParser(s.cfg.MaxItemErrors)
	catalogDoc, err := parser.Parse(body)
	if err != nil {
		return nil, err
	}

	if parser.Errors().HasErrors() {
		summary.ParseErrors += parser.Errors().TotalCount()
		message := fmt.Sprintf("catalog feed has %d invalid nodes", parser.Errors().TotalCount())
		logger.FromContext(ctx).Warn(message, zap.String("details", parser.Errors().String()))
		_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
			t.AppendLog("warn", message)
		})
	}

	_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
		t.AppendLog("info", fmt.Sprintf("catalog fetched: %d sections, %d items",
			len(catalogDoc.Sections), len(catalogDoc.Items)))
	})

	return catalogDoc, nil
}

// mergeStock fetches and applies the offers feed. An unavailable offers feed
// is logged and skipped; it is an optional companion of the catalog.
func (s *Service) mergeStock(ctx context.Context, taskID uuid.UUID, summary *sync.Summary) error {
	body, err := s.fetcher.FetchOffers(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("offers feed unavailable, skipping stock pass", zap.Error(err))
		_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
			t.AppendLog("warn", "offers feed unavailable, stock pass skipped")
		})
		return nil
	}
	if body == nil {
		return nil
	}
	defer body.Close()

	parser := feed.NewOffersParser(s.cfg.MaxItemErrors)
	rows, err := parser.Parse(body)
	if err != nil {
		logger.FromContext(ctx).Warn("offers feed unreadable, skipping stock pass", zap.Error(err))
		_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
			t.AppendLog("warn", "offers feed unreadable, stock pass skipped")
		})
		return nil
	}
	if parser.Errors().HasErrors() {
		summary.ParseErrors += parser.Errors().TotalCount()
		_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
			t.AppendLog("warn", fmt.Sprintf("offers feed has %d invalid rows", parser.Errors().TotalCount()))
		})
	}

	if err := s.merger.Merge(ctx, rows, summary); err != nil {
		return err
	}

	s.progress(ctx, taskID, *summary, fmt.Sprintf("stock pass done: %d upserted, %d failed",
		summary.StockUpserted, summary.StockFailed))
	return nil
}

// stopOnErr finishes the task when a pass returned an error. Cancellation and
// failure both end the run.
func (s *Service) stopOnErr(ctx context.Context, taskID uuid.UUID, summary sync.Summary, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		// Cancel() already moved the task to its terminal state
		s.finish(taskID, func(t *sync.Task) {
			t.Summary = summary
			if !t.State.IsTerminal() {
				_ = t.Cancel()
				t.AppendLog("warn", "sync task cancelled")
			}
		})
		return true
	}
	s.fail(ctx, taskID, err)
	return true
}

func (s *Service) fail(ctx context.Context, taskID uuid.UUID, cause error) {
	logger.FromContext(ctx).Error("sync task failed", zap.Error(cause))
	s.finish(taskID, func(t *sync.Task) {
		t.AppendLog("error", cause.Error())
		_ = t.Fail(cause.Error())
	})
}

// finish applies the terminal mutation
func (s *Service) finish(taskID uuid.UUID, fn func(t *sync.Task)) {
	_ = s.registry.Update(context.Background(), taskID, func(t *sync.Task) {
		if t.State.IsTerminal() {
			return
		}
		fn(t)
	})
}

func (s *Service) stage(ctx context.Context, taskID uuid.UUID, stage string) {
	_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
		if t.State.IsTerminal() {
			return
		}
		t.SetStage(stage, stageLabels[stage])
	})
}

func (s *Service) progress(ctx context.Context, taskID uuid.UUID, summary sync.Summary, message string) {
	_ = s.registry.Update(ctx, taskID, func(t *sync.Task) {
		if t.State.IsTerminal() {
			return
		}
		t.Summary = summary
		t.AppendLog("info", message)
	})
}
