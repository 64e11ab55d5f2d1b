package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/shoplink/backend/internal/domain/catalog"
	"github.com/shoplink/backend/internal/domain/shared"
	syncdomain "github.com/shoplink/backend/internal/domain/sync"
	"github.com/shoplink/backend/internal/infrastructure/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestReconciler(items *fakeItemRepo, sections *fakeSectionRepo) *Reconciler {
	return NewReconciler(items, sections, nopPublisher{}, zap.NewNop())
}

func itemNode(externalID, name string) feed.ItemNode {
	return feed.ItemNode{
		ExternalID: externalID,
		Name:       name,
		Attributes: map[string]string{},
	}
}

func TestReconciler_CreatesSections(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)

	nodes := []feed.SectionNode{
		{ExternalID: "sec-1", ExternalCode: "S1", Name: "Clothing"},
		{ExternalID: "sec-2", Name: "Shirts", ParentExternalID: "sec-1"},
	}

	summary := syncdomain.Summary{}
	seen, err := r.ReconcileSections(context.Background(), nodes, &summary)
	require.NoError(t, err)

	assert.Equal(t, []string{"sec-1", "sec-2"}, seen)
	assert.Equal(t, 2, summary.SectionsCreated)
	assert.Equal(t, 0, summary.SectionsUpdated)

	child := sections.get("sec-2")
	require.NotNil(t, child)
	require.NotNil(t, child.ParentExternalID)
	assert.Equal(t, "sec-1", *child.ParentExternalID)
	assert.Equal(t, "created", child.SyncStatus)
}

func TestReconciler_SectionNullParentMeansRoot(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)

	nodes := []feed.SectionNode{
		{ExternalID: "sec-1", Name: "Root", ParentExternalID: catalog.NullGUID},
	}

	summary := syncdomain.Summary{}
	_, err := r.ReconcileSections(context.Background(), nodes, &summary)
	require.NoError(t, err)

	section := sections.get("sec-1")
	require.NotNil(t, section)
	assert.True(t, section.IsRoot())
}

func TestReconciler_UpdatesAndReactivatesSection(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	existing, err := catalog.NewSection("sec-1", "Old Name")
	require.NoError(t, err)
	existing.Deactivate()
	require.NoError(t, sections.Save(ctx, existing))

	summary := syncdomain.Summary{}
	_, err = r.ReconcileSections(ctx, []feed.SectionNode{
		{ExternalID: "sec-1", Name: "New Name"},
	}, &summary)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SectionsUpdated)
	section := sections.get("sec-1")
	assert.Equal(t, "New Name", section.Name)
	assert.True(t, section.IsActive())
}

func TestReconciler_CreatesItems(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)

	node := feed.ItemNode{
		ExternalID:        "itm-1",
		ExternalCode:      "C1",
		Article:           "ART-1",
		Name:              "Shirt",
		Description:       "Cotton shirt",
		SectionExternalID: "sec-1",
		Unit:              "pcs",
		Price:             129990,
		Attributes:        map[string]string{"color": "blue"},
	}

	summary := syncdomain.Summary{}
	seen, err := r.ReconcileItems(context.Background(), []feed.ItemNode{node}, true, nil, &summary, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"itm-1"}, seen)
	assert.Equal(t, 1, summary.ItemsCreated)

	item := items.get("itm-1")
	require.NotNil(t, item)
	assert.Equal(t, "ART-1", item.Article)
	assert.Equal(t, int64(129990), item.Price)
	assert.Equal(t, "blue", item.Attributes["color"])
	require.NotNil(t, item.SectionExternalID)
	assert.Equal(t, "sec-1", *item.SectionExternalID)
	assert.Equal(t, "created", item.SyncStatus)
}

func TestReconciler_SecondRunSkipsUnchangedItems(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	nodes := []feed.ItemNode{
		{ExternalID: "itm-1", Article: "ART-1", Name: "Shirt", Price: 1000, Attributes: map[string]string{}},
	}

	summary := syncdomain.Summary{}
	_, err := r.ReconcileItems(ctx, nodes, true, nil, &summary, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.ItemsCreated)

	second := syncdomain.Summary{}
	_, err = r.ReconcileItems(ctx, nodes, true, nil, &second, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, second.ItemsCreated)
	assert.Equal(t, 0, second.ItemsUpdated)
	assert.Equal(t, 1, second.ItemsSkipped)
}

func TestReconciler_UpdatesChangedItem(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	summary := syncdomain.Summary{}
	_, err := r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "itm-1", Name: "Shirt", Price: 1000, Attributes: map[string]string{}},
	}, true, nil, &summary, nil)
	require.NoError(t, err)

	second := syncdomain.Summary{}
	_, err = r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "itm-1", Name: "Shirt", Price: 1500, Attributes: map[string]string{}},
	}, true, nil, &second, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, second.ItemsUpdated)
	assert.Equal(t, int64(1500), items.get("itm-1").Price)
}

func TestReconciler_PricelessFeedKeepsKnownPrice(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	summary := syncdomain.Summary{}
	_, err := r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "itm-1", Name: "Shirt", Price: 1000, Attributes: map[string]string{}},
	}, true, nil, &summary, nil)
	require.NoError(t, err)

	// The next export carries no price element; the name change still lands
	// but the price known from the offers feed survives
	second := syncdomain.Summary{}
	_, err = r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "itm-1", Name: "Shirt v2", Attributes: map[string]string{}},
	}, true, nil, &second, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, second.ItemsUpdated)
	assert.Equal(t, "Shirt v2", items.get("itm-1").Name)
	assert.Equal(t, int64(1000), items.get("itm-1").Price)
}

func TestReconciler_ResolvesByArticleBeforeExternalID(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	// The supplier re-exported the catalog with new external IDs but the
	// article survived
	existing, err := catalog.NewItem("old-id", "Shirt")
	require.NoError(t, err)
	existing.SetIdentity("", "ART-1")
	require.NoError(t, items.Save(ctx, existing))

	summary := syncdomain.Summary{}
	_, err = r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "new-id", Article: "ART-1", Name: "Shirt Renamed", Attributes: map[string]string{}},
	}, true, nil, &summary, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ItemsUpdated)
	assert.Equal(t, 0, summary.ItemsCreated)

	count, err := items.Count(ctx, shared.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "Shirt Renamed", items.get("old-id").Name)
}

func TestReconciler_ResolvesByExternalCode(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	existing, err := catalog.NewItem("old-id", "Shirt")
	require.NoError(t, err)
	existing.SetIdentity("CODE-1", "")
	require.NoError(t, items.Save(ctx, existing))

	summary := syncdomain.Summary{}
	_, err = r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "new-id", ExternalCode: "CODE-1", Name: "Shirt v2", Attributes: map[string]string{}},
	}, true, nil, &summary, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ItemsUpdated)
	assert.Equal(t, "Shirt v2", items.get("old-id").Name)
}

func TestReconciler_VariantKeepsParentReference(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)

	nodes := []feed.ItemNode{
		itemNode("base-1", "Shirt"),
		{
			ExternalID: "var-1",
			Name:       "Shirt M",
			Attributes: map[string]string{catalog.AttrParentID: "base-1", "size": "M"},
		},
		{
			ExternalID: "var-2",
			Name:       "Shirt L",
			Attributes: map[string]string{catalog.AttrParentID: catalog.NullGUID, "size": "L"},
		},
	}

	summary := syncdomain.Summary{}
	_, err := r.ReconcileItems(context.Background(), nodes, true, nil, &summary, nil)
	require.NoError(t, err)
	require.Equal(t, 3, summary.ItemsCreated)

	assert.True(t, items.get("var-1").IsVariant())
	// The all-zero GUID is the feed's way of saying "no parent"
	assert.False(t, items.get("var-2").IsVariant())

	variants, err := items.FindVariants(context.Background(), "base-1")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "var-1", variants[0].ExternalID)
}

func TestReconciler_OneBadItemDoesNotAbortThePass(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	items.saveErr["itm-2"] = errors.New("storage hiccup")
	r := newTestReconciler(items, sections)

	nodes := []feed.ItemNode{
		itemNode("itm-1", "First"),
		itemNode("itm-2", "Second"),
		itemNode("itm-3", "Third"),
	}

	summary := syncdomain.Summary{}
	seen, err := r.ReconcileItems(context.Background(), nodes, true, nil, &summary, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ItemsCreated)
	assert.Equal(t, 1, summary.ItemsFailed)
	// The failed ID is still marked as seen so deactivation leaves it alone
	assert.Contains(t, seen, "itm-2")
}

func TestReconciler_DeactivateMissing(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	summary := syncdomain.Summary{}
	seenSections, err := r.ReconcileSections(ctx, []feed.SectionNode{
		{ExternalID: "sec-1", Name: "Kept"},
		{ExternalID: "sec-2", Name: "Dropped"},
	}, &summary)
	require.NoError(t, err)

	seenItems, err := r.ReconcileItems(ctx, []feed.ItemNode{
		itemNode("itm-1", "Kept"),
		itemNode("itm-2", "Dropped"),
	}, true, nil, &summary, nil)
	require.NoError(t, err)

	// Next feed run only mentions the kept records
	next := syncdomain.Summary{}
	err = r.DeactivateMissing(ctx, seenSections[:1], seenItems[:1], &next)
	require.NoError(t, err)

	assert.Equal(t, 1, next.ItemsDeactivated)
	assert.Equal(t, 1, next.SectionsDeactivated)
	assert.True(t, items.get("itm-1").IsActive())
	assert.False(t, items.get("itm-2").IsActive())
	assert.True(t, sections.get("sec-1").IsActive())
	assert.False(t, sections.get("sec-2").IsActive())
}

func TestReconciler_UpdateExistingDisabledLeavesItemAlone(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	summary := syncdomain.Summary{}
	_, err := r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "itm-1", Name: "Shirt", Price: 1000, Attributes: map[string]string{}},
	}, true, nil, &summary, nil)
	require.NoError(t, err)

	second := syncdomain.Summary{}
	_, err = r.ReconcileItems(ctx, []feed.ItemNode{
		{ExternalID: "itm-1", Name: "Shirt v2", Price: 2000, Attributes: map[string]string{}},
	}, false, nil, &second, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, second.ItemsUpdated)
	assert.Equal(t, 1, second.ItemsSkipped)
	assert.Equal(t, "Shirt", items.get("itm-1").Name)
	assert.Equal(t, int64(1000), items.get("itm-1").Price)
}

func TestReconciler_ReportsProgressPerNode(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	items.saveErr["itm-2"] = errors.New("storage hiccup")
	r := newTestReconciler(items, sections)

	nodes := []feed.ItemNode{
		itemNode("itm-1", "First"),
		itemNode("itm-2", "Second"),
		itemNode("itm-3", "Third"),
	}

	type tick struct{ current, total int }
	var ticks []tick

	summary := syncdomain.Summary{}
	_, err := r.ReconcileItems(context.Background(), nodes, true, nil, &summary, func(current, total int) {
		ticks = append(ticks, tick{current, total})
	})
	require.NoError(t, err)

	// Failed nodes still advance the counter
	assert.Equal(t, []tick{{1, 3}, {2, 3}, {3, 3}}, ticks)
}

func TestReconciler_ReactivatesReturningItem(t *testing.T) {
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := newTestReconciler(items, sections)
	ctx := context.Background()

	existing, err := catalog.NewItem("itm-1", "Shirt")
	require.NoError(t, err)
	existing.Deactivate()
	require.NoError(t, items.Save(ctx, existing))

	summary := syncdomain.Summary{}
	_, err = r.ReconcileItems(ctx, []feed.ItemNode{itemNode("itm-1", "Shirt")}, true, nil, &summary, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ItemsUpdated)
	assert.True(t, items.get("itm-1").IsActive())
}

func TestReconciler_WarnsOnUndeclaredSectionParent(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := NewReconciler(items, sections, nopPublisher{}, zap.New(core))

	nodes := []feed.SectionNode{
		{ExternalID: "sec-a", Name: "Shoes", ParentExternalID: "sec-c"},
		{ExternalID: "sec-b", Name: "Boots", ParentExternalID: "sec-a"},
	}

	summary := syncdomain.Summary{}
	_, err := r.ReconcileSections(context.Background(), nodes, &summary)
	require.NoError(t, err)

	// The orphan is still imported; the dangling parent is only reported
	assert.Equal(t, 2, summary.SectionsCreated)
	require.NotNil(t, sections.get("sec-a"))

	warned := logs.FilterMessage("section parent missing from the feed").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "sec-a", warned[0].ContextMap()["external_id"])
	assert.Equal(t, "sec-c", warned[0].ContextMap()["parent_external_id"])
}

func TestReconciler_WarnsOnUndeclaredItemSection(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	items := newFakeItemRepo()
	sections := newFakeSectionRepo()
	r := NewReconciler(items, sections, nopPublisher{}, zap.New(core))

	nodes := []feed.ItemNode{
		{ExternalID: "itm-1", Name: "Shirt", SectionExternalID: "sec-1", Attributes: map[string]string{}},
		{ExternalID: "itm-2", Name: "Scarf", SectionExternalID: "sec-unknown", Attributes: map[string]string{}},
		{ExternalID: "itm-3", Name: "Belt", SectionExternalID: catalog.NullGUID, Attributes: map[string]string{}},
	}

	summary := syncdomain.Summary{}
	_, err := r.ReconcileItems(context.Background(), nodes, true, []string{"sec-1"}, &summary, nil)
	require.NoError(t, err)

	// The unresolved reference never blocks the import
	assert.Equal(t, 3, summary.ItemsCreated)
	require.NotNil(t, items.get("itm-2"))

	warned := logs.FilterMessage("item references a section missing from the feed").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "itm-2", warned[0].ContextMap()["external_id"])
	assert.Equal(t, "sec-unknown", warned[0].ContextMap()["section_external_id"])
}
