package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(
		sqlite.Open(filepath.Join(t.TempDir(), "test.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SourceModel{}, &models.ContentItemModel{}, &models.SummaryModel{}))
	return db
}

func seedItem(t *testing.T, db *gorm.DB, text string) *models.ContentItemModel {
	t.Helper()
	source := models.SourceModel{Type: models.SourceTypeManualText}
	require.NoError(t, db.Create(&source).Error)
	item := models.ContentItemModel{TextContent: text, ContentHash: text, SourceID: source.ID}
	require.NoError(t, db.Create(&item).Error)
	return &item
}

// fakeChatServer speaks just enough /v1/chat/completions for the summary
// path and counts how often it was called.
func fakeChatServer(t *testing.T, reply string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		calls.Add(1)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newSummaryService(t *testing.T, db *gorm.DB, baseURL string) *Service {
	t.Helper()
	cfg := &config.AppConfig{}
	cfg.AI.Summary = config.ProviderConfig{
		Provider: "local",
		BaseURL:  baseURL,
		Model:    "test-summarizer",
	}
	return NewService(db, cfg, nil, nil)
}

func TestGenerateForItemStoresSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, calls := fakeChatServer(t, "A short faithful summary.")
	db := openTestDB(t)
	svc := newSummaryService(t, db, srv.URL)
	item := seedItem(t, db, "A very long article body about vector databases.")

	summary, created, err := svc.GenerateForItem(ctx, item)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, summary)
	assert.Equal(t, "A short faithful summary.", summary.SummaryText)
	assert.Equal(t, models.SummaryTypeAIGenerated, summary.Type)
	assert.Equal(t, "test-summarizer", summary.ModelUsed)
	assert.Equal(t, item.ID, summary.ContentItemID)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGenerateForItemIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, calls := fakeChatServer(t, "only generated once")
	db := openTestDB(t)
	svc := newSummaryService(t, db, srv.URL)
	item := seedItem(t, db, "content worth summarizing")

	first, created, err := svc.GenerateForItem(ctx, item)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.GenerateForItem(ctx, item)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), calls.Load(), "repeat calls must not touch the model")
}

func TestGenerateForItemRejectsEmptyText(t *testing.T) {
	t.Parallel()

	srv, calls := fakeChatServer(t, "unused")
	db := openTestDB(t)
	svc := newSummaryService(t, db, srv.URL)
	item := seedItem(t, db, "   \n\t ")

	_, _, err := svc.GenerateForItem(context.Background(), item)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoText))
	assert.Zero(t, calls.Load())
}

func TestDeleteForItemAllowsRegeneration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, calls := fakeChatServer(t, "regenerated")
	db := openTestDB(t)
	svc := newSummaryService(t, db, srv.URL)
	item := seedItem(t, db, "summarize me twice")

	_, _, err := svc.GenerateForItem(ctx, item)
	require.NoError(t, err)

	removed, err := svc.DeleteForItem(item.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.DeleteForItem(item.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, created, err := svc.GenerateForItem(ctx, item)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2), calls.Load())
}

func TestSummaryForItemWithoutSummary(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	svc := newSummaryService(t, db, "http://127.0.0.1:0")
	item := seedItem(t, db, "no summary yet")

	summary, err := svc.SummaryForItem(item.ID)
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestBackfillWithoutQueueIsNoOp(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	svc := newSummaryService(t, db, "http://127.0.0.1:0")
	seedItem(t, db, "unsummarized")

	n, err := svc.BackfillSummaries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnsummarizedItemIDsSkipsSummarized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, _ := fakeChatServer(t, "done")
	db := openTestDB(t)
	svc := newSummaryService(t, db, srv.URL)

	summarized := seedItem(t, db, "has summary")
	pending := seedItem(t, db, "waiting")

	_, _, err := svc.GenerateForItem(ctx, summarized)
	require.NoError(t, err)

	ids, err := svc.unsummarizedItemIDs(10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, pending.ID, ids[0])
}

func TestCleanSummaryText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  a summary  ", want: "a summary"},
		{name: "code fence", in: "```\nfenced summary\n```", want: "fenced summary"},
		{name: "language fence", in: "```text\nfenced summary\n```", want: "fenced summary"},
		{name: "quoted", in: `"quoted summary"`, want: "quoted summary"},
		{name: "inner quotes survive", in: `he said "hi" there`, want: `he said "hi" there`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanSummaryText(tt.in))
		})
	}
}
