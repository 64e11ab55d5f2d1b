package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	"github.com/shoplink/backend/internal/domain/sync"
	"github.com/shoplink/backend/internal/infrastructure/feed"
	"go.uber.org/zap"
)

// Reconciler applies parsed catalog nodes to storage. One bad node never
// aborts the pass: the failure is counted and the pass moves on.
type Reconciler struct {
	itemRepo    catalog.ItemRepository
	sectionRepo catalog.SectionRepository
	eventBus    shared.EventPublisher
	logger      *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(
	itemRepo catalog.ItemRepository,
	sectionRepo catalog.SectionRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		itemRepo:    itemRepo,
		sectionRepo: sectionRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// ReconcileSections creates or updates sections from feed nodes and returns
// the external IDs present in the feed. A section whose parent the feed never
// declares is imported anyway; the dangling reference is only reported.
func (r *Reconciler) ReconcileSections(ctx context.Context, nodes []feed.SectionNode, summary *sync.Summary) ([]string, error) {
	seen := make([]string, 0, len(nodes))

	declared := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		declared[node.ExternalID] = true
	}

	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return seen, err
		}
		seen = append(seen, node.ExternalID)

		if node.ParentExternalID != "" && node.ParentExternalID != catalog.NullGUID && !declared[node.ParentExternalID] {
			r.logger.Warn("section parent missing from the feed",
				zap.String("external_id", node.ExternalID),
				zap.String("parent_external_id", node.ParentExternalID),
			)
		}

		if err := r.reconcileSection(ctx, node, summary); err != nil {
			r.logger.Warn("section reconciliation failed",
				zap.String("external_id", node.ExternalID),
				zap.Error(err),
			)
		}
	}

	return seen, nil
}

func (r *Reconciler) reconcileSection(ctx context.Context, node feed.SectionNode, summary *sync.Summary) error {
	section, err := r.sectionRepo.FindByExternalID(ctx, node.ExternalID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if section == nil {
		section, err = catalog.NewSection(node.ExternalID, node.Name)
		if err != nil {
			return err
		}
		if node.ExternalCode != "" {
			if err := section.Update(node.Name, node.ExternalCode); err != nil {
				return err
			}
		}
		section.SetParent(node.ParentExternalID)
		section.MarkSynced("created")

		if err := r.sectionRepo.Save(ctx, section); err != nil {
			return err
		}
		summary.SectionsCreated++
	} else {
		if err := section.Update(node.Name, node.ExternalCode); err != nil {
			return err
		}
		section.SetParent(node.ParentExternalID)
		section.Activate()
		section.MarkSynced("updated")

		if err := r.sectionRepo.Save(ctx, section); err != nil {
			return err
		}
		summary.SectionsUpdated++
	}

	r.publishEvents(ctx, section)
	return nil
}

// ReconcileItems creates or updates items from feed nodes. It returns every
// external ID the feed mentioned, including those of failed nodes, so the
// deactivation pass never punishes an item for a transient error. When
// updateExisting is false, matched items are left untouched and counted as
// skipped. knownSections is the section set of the current feed; an item
// referencing a section outside it is still imported, with a warning.
// onProgress, if set, is called after every node.
func (r *Reconciler) ReconcileItems(ctx context.Context, nodes []feed.ItemNode, updateExisting bool, knownSections []string, summary *sync.Summary, onProgress func(current, total int)) ([]string, error) {
	seen := make([]string, 0, len(nodes))
	total := len(nodes)

	known := make(map[string]bool, len(knownSections))
	for _, id := range knownSections {
		known[id] = true
	}

	for i, node := range nodes {
		if err := ctx.Err(); err != nil {
			return seen, err
		}
		seen = append(seen, node.ExternalID)

		if node.SectionExternalID != "" && node.SectionExternalID != catalog.NullGUID && !known[node.SectionExternalID] {
			r.logger.Warn("item references a section missing from the feed",
				zap.String("external_id", node.ExternalID),
				zap.String("section_external_id", node.SectionExternalID),
			)
		}

		kept, err := r.reconcileItem(ctx, node, updateExisting, summary)
		if err != nil {
			summary.ItemsFailed++
			r.logger.Warn("item reconciliation failed",
				zap.String("external_id", node.ExternalID),
				zap.Error(err),
			)
		} else if kept != "" && kept != node.ExternalID {
			// An item matched by article or code may keep its stored external ID
			seen = append(seen, kept)
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	return seen, nil
}

func (r *Reconciler) reconcileItem(ctx context.Context, node feed.ItemNode, updateExisting bool, summary *sync.Summary) (string, error) {
	item, err := r.resolveItem(ctx, node)
	if err != nil {
		return "", err
	}

	if item == nil {
		item, err = catalog.NewItem(node.ExternalID, node.Name)
		if err != nil {
			return "", err
		}
		item.SetIdentity(node.ExternalCode, node.Article)
		if err := item.Update(node.Name, node.Description, node.Unit); err != nil {
			return "", err
		}
		item.SetSection(node.SectionExternalID)
		if err := item.SetPrice(node.Price); err != nil {
			return "", err
		}
		item.SetAttributes(catalog.AttributeMap(node.Attributes))
		item.MarkSynced("created")

		if err := r.itemRepo.Save(ctx, item); err != nil {
			return "", err
		}
		summary.ItemsCreated++
		r.publishEvents(ctx, item)
		return item.ExternalID, nil
	}

	if !updateExisting || r.itemUnchanged(item, node) {
		summary.ItemsSkipped++
		return item.ExternalID, nil
	}

	item.SetIdentity(node.ExternalCode, node.Article)
	if err := item.Update(node.Name, node.Description, node.Unit); err != nil {
		return "", err
	}
	item.SetSection(node.SectionExternalID)
	// A catalog export without prices must not wipe a price already known
	// from the offers feed
	if node.Price > 0 {
		if err := item.SetPrice(node.Price); err != nil {
			return "", err
		}
	}
	item.SetAttributes(catalog.AttributeMap(node.Attributes))
	item.Activate()
	item.MarkSynced("updated")

	if err := r.itemRepo.Save(ctx, item); err != nil {
		return "", err
	}
	summary.ItemsUpdated++
	r.publishEvents(ctx, item)
	return item.ExternalID, nil
}

// resolveItem finds the stored item a feed node refers to. Identity is
// resolved by article first, then external code, then external ID; the
// article is the most stable identifier across supplier re-exports.
func (r *Reconciler) resolveItem(ctx context.Context, node feed.ItemNode) (*catalog.Item, error) {
	if node.Article != "" {
		item, err := r.itemRepo.FindByArticle(ctx, node.Article)
		if err == nil {
			r.warnOnConflict(ctx, item, node)
			return item, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	if node.ExternalCode != "" {
		item, err := r.itemRepo.FindByExternalCode(ctx, node.ExternalCode)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	item, err := r.itemRepo.FindByExternalID(ctx, node.ExternalID)
	if err == nil {
		return item, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// warnOnConflict reports a feed node whose article and external ID resolve to
// different stored items. The article match wins; the other row is left alone.
func (r *Reconciler) warnOnConflict(ctx context.Context, matched *catalog.Item, node feed.ItemNode) {
	other, err := r.itemRepo.FindByExternalID(ctx, node.ExternalID)
	if err != nil || other.ID == matched.ID {
		return
	}
	r.logger.Warn("item identity conflict, article match wins",
		zap.String("article", node.Article),
		zap.String("external_id", node.ExternalID),
		zap.String("matched_item", matched.ID.String()),
		zap.String("conflicting_item", other.ID.String()),
	)
}

func (r *Reconciler) itemUnchanged(item *catalog.Item, node feed.ItemNode) bool {
	if !item.IsActive() {
		return false
	}
	if item.Name != node.Name || item.Description != node.Description || item.Unit != node.Unit {
		return false
	}
	if node.Price > 0 && item.Price != node.Price {
		return false
	}
	if node.ExternalCode != "" && item.ExternalCode != node.ExternalCode {
		return false
	}
	if node.Article != "" && item.Article != node.Article {
		return false
	}

	section := ""
	if item.SectionExternalID != nil {
		section = *item.SectionExternalID
	}
	nodeSection := node.SectionExternalID
	if nodeSection == catalog.NullGUID {
		nodeSection = ""
	}
	if section != nodeSection {
		return false
	}

	if len(item.Attributes) != len(node.Attributes) {
		return false
	}
	for name, value := range node.Attributes {
		if item.Attributes[name] != value {
			return false
		}
	}
	return true
}

// DeactivateMissing deactivates every active item and section the feed no
// longer mentions. Callers must skip this pass for partial or empty feeds.
func (r *Reconciler) DeactivateMissing(ctx context.Context, seenSections, seenItems []string, summary *sync.Summary) error {
	items, err := r.itemRepo.DeactivateNotIn(ctx, seenItems)
	if err != nil {
		return fmt.Errorf("failed to deactivate missing items: %w", err)
	}
	summary.ItemsDeactivated += int(items)

	sections, err := r.sectionRepo.DeactivateNotIn(ctx, seenSections)
	if err != nil {
		return fmt.Errorf("failed to deactivate missing sections: %w", err)
	}
	summary.SectionsDeactivated += int(sections)

	return nil
}

func (r *Reconciler) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := r.eventBus.Publish(ctx, events...); err != nil {
		r.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
