package item

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/pkg/pagination"
	"github.com/tracepaper/core/internal/pkg/vectorindex"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, vectorindex.Index) {
	t.Helper()
	db, err := gorm.Open(
		sqlite.Open(filepath.Join(t.TempDir(), "test.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SourceModel{}, &models.ContentItemModel{}, &models.SummaryModel{}))

	index := vectorindex.NewFlat("", 3)
	return NewService(db, index, zap.NewNop()), db, index
}

func seedItem(t *testing.T, db *gorm.DB, text string, createdAt time.Time, processed bool) models.ContentItemModel {
	t.Helper()
	source := models.SourceModel{Type: models.SourceTypeManualText}
	require.NoError(t, db.Create(&source).Error)

	item := models.ContentItemModel{
		TextContent: text,
		ContentHash: text, // uniqueness is all the tests need
		SourceID:    source.ID,
	}
	if processed {
		now := createdAt.Add(time.Second)
		item.ProcessedAt = &now
	}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Model(&item).Update("created_at", createdAt).Error)
	item.CreatedAt = createdAt
	return item
}

func TestListSortsNewestFirstByDefault(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedItem(t, db, "oldest", base, true)
	seedItem(t, db, "middle", base.Add(time.Hour), true)
	seedItem(t, db, "newest", base.Add(2*time.Hour), false)

	items, p, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListQuery{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "newest", items[0].TextContent)
	assert.Equal(t, "oldest", items[2].TextContent)
	assert.Equal(t, int64(3), p.Total)
	assert.False(t, p.HasNextPage)
}

func TestListSortWhitelistAndDirection(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedItem(t, db, "first", base, true)
	seedItem(t, db, "second", base.Add(time.Hour), true)

	// Ascending on a whitelisted column.
	items, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListQuery{SortBy: "created_at", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].TextContent)

	// A column outside the whitelist falls back to created_at DESC.
	items, _, err = svc.List(pagination.Query{Page: 1, Size: 10}, ListQuery{SortBy: "content_hash; DROP TABLE content_items"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].TextContent)
}

func TestListFiltersByProcessedState(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedItem(t, db, "done", base, true)
	seedItem(t, db, "pending", base.Add(time.Hour), false)

	processed := true
	items, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListQuery{Processed: &processed})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "done", items[0].TextContent)

	processed = false
	items, _, err = svc.List(pagination.Query{Page: 1, Size: 10}, ListQuery{Processed: &processed})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "pending", items[0].TextContent)
}

func TestListPreloadsRelations(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	item := seedItem(t, db, "with summary", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), true)
	require.NoError(t, db.Create(&models.SummaryModel{
		SummaryText:   "short version",
		Type:          models.SummaryTypeAIGenerated,
		ContentItemID: item.ID,
	}).Error)

	items, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Source)
	require.NotNil(t, items[0].AISummary)
	assert.Equal(t, "short version", items[0].AISummary.SummaryText)
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	item, err := svc.GetByID("b5f0f8c2-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestGetByIDsPreservesOrderAndSkipsMissing(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := seedItem(t, db, "a", base, true)
	b := seedItem(t, db, "b", base.Add(time.Minute), true)
	c := seedItem(t, db, "c", base.Add(2*time.Minute), true)

	items, err := svc.GetByIDs([]string{c.ID, "gone", a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].TextContent)
	assert.Equal(t, "a", items[1].TextContent)
	assert.Equal(t, "b", items[2].TextContent)

	items, err = svc.GetByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteRemovesItemSummaryAndVector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, db, index := newTestService(t)
	item := seedItem(t, db, "to delete", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), true)
	require.NoError(t, db.Create(&models.SummaryModel{
		SummaryText:   "summary",
		ContentItemID: item.ID,
	}).Error)
	require.NoError(t, index.Add(ctx, item.ID, []float32{1, 0, 0}))

	deleted, err := svc.Delete(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var itemCount, summaryCount int64
	require.NoError(t, db.Model(&models.ContentItemModel{}).Count(&itemCount).Error)
	require.NoError(t, db.Model(&models.SummaryModel{}).Count(&summaryCount).Error)
	assert.Zero(t, itemCount)
	assert.Zero(t, summaryCount)

	n, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Deleting again reports the item as already gone.
	deleted, err = svc.Delete(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
