package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/pkg/response"
	"go.uber.org/zap"
)

// fakeModelServer speaks the two local-inference dialects the default
// providers use: /v1/embeddings and /v1/chat/completions.
func fakeModelServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var chatCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		out := struct {
			Data []datum `json:"data"`
		}{}
		for i, text := range req.Input {
			out.Data = append(out.Data, datum{Index: i, Embedding: vectorFor(text)})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(out))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		chatCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"A concise generated summary."}}]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &chatCalls
}

// vectorFor gives each topic its own axis so search ranking is exact.
func vectorFor(text string) []float32 {
	switch {
	case strings.Contains(text, "alpha"):
		return []float32{1, 0, 0}
	case strings.Contains(text, "beta"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func newTestApp(t *testing.T, modelURL, authToken string) *App {
	t.Helper()
	cfg := &config.AppConfig{
		Host:      "127.0.0.1",
		Port:      8000,
		Env:       "production",
		DataDir:   t.TempDir(),
		AuthToken: authToken,
		Database:  config.DatabaseConfig{Driver: "sqlite", Path: "app_test.db"},
		Vector:    config.VectorConfig{Provider: "flat", Dimension: 3, Path: "vector_index.json"},
		AI: config.AIConfig{
			Embedding: config.ProviderConfig{Provider: "openai_compatible", BaseURL: modelURL, Model: "test-embed"},
			Summary:   config.ProviderConfig{Provider: "local", BaseURL: modelURL, Model: "test-sum", MaxTokens: 128},
		},
	}

	a, err := New(zap.NewNop(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func doJSON(t *testing.T, h http.Handler, method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type pagedItems struct {
	Data       []models.ContentItemModel `json:"data"`
	Pagination response.Pagination       `json:"pagination"`
}

func TestIngestSearchSummarizeFlow(t *testing.T) {
	srv, chatCalls := fakeModelServer(t)
	a := newTestApp(t, srv.URL, "")
	router := a.Router()

	rec := doJSON(t, router, http.MethodGet, "/ping", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":"pong"}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/ingest/text", map[string]interface{}{
		"text":         "alpha notes about the first topic",
		"source_type":  models.SourceTypeManualText,
		"source_title": "Alpha",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var alpha models.ContentItemModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alpha))
	assert.NotEmpty(t, alpha.ID)
	assert.Len(t, alpha.ContentHash, 64)
	require.NotNil(t, alpha.ProcessedAt, "embedding reachable, so the item must be marked processed")
	require.NotNil(t, alpha.Source)
	assert.Equal(t, "Alpha", alpha.Source.Title)

	// Same text again dedups onto the existing row.
	rec = doJSON(t, router, http.MethodPost, "/ingest/text", map[string]interface{}{
		"text": "alpha notes about the first topic",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dup models.ContentItemModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dup))
	assert.Equal(t, alpha.ID, dup.ID)

	rec = doJSON(t, router, http.MethodPost, "/ingest/text", map[string]interface{}{
		"text": "beta notes about the second topic",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var beta models.ContentItemModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &beta))

	rec = doJSON(t, router, http.MethodGet, "/content_items?size=10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed pagedItems
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, int64(2), listed.Pagination.Total)
	require.Len(t, listed.Data, 2)

	rec = doJSON(t, router, http.MethodGet, "/content_items/"+alpha.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/search?query=alpha&k=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var searched struct {
		Data []struct {
			models.ContentItemModel
			Score float64 `json:"score"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &searched))
	require.NotEmpty(t, searched.Data)
	assert.Equal(t, alpha.ID, searched.Data[0].ID)
	assert.InDelta(t, 1.0, searched.Data[0].Score, 0.01)

	// First summarize call hits the model, the second returns the stored row.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/content_items/%s/summarize", alpha.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary models.SummaryModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "A concise generated summary.", summary.SummaryText)
	assert.Equal(t, models.SummaryTypeAIGenerated, summary.Type)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/content_items/%s/summarize", alpha.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var again models.SummaryModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, summary.ID, again.ID)
	assert.Equal(t, int64(1), chatCalls.Load())

	rec = doJSON(t, router, http.MethodGet, "/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stat struct {
		Sources        int64 `json:"sources"`
		ContentItems   int64 `json:"content_items"`
		Summaries      int64 `json:"summaries"`
		Unprocessed    int64 `json:"unprocessed"`
		IndexedVectors int64 `json:"indexed_vectors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stat))
	assert.Equal(t, int64(2), stat.ContentItems)
	assert.Equal(t, int64(1), stat.Summaries)
	assert.Equal(t, int64(0), stat.Unprocessed)
	assert.Equal(t, int64(2), stat.IndexedVectors)

	rec = doJSON(t, router, http.MethodDelete, "/content_items/"+alpha.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/content_items/"+alpha.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/search?query=alpha&k=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	searched.Data = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &searched))
	for _, hit := range searched.Data {
		assert.NotEqual(t, alpha.ID, hit.ID, "deleted items must leave the index")
	}

	rec = doJSON(t, router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":true`)

	rec = doJSON(t, router, http.MethodGet, "/does-not-exist", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestRejectsMissingText(t *testing.T) {
	srv, _ := fakeModelServer(t)
	a := newTestApp(t, srv.URL, "")

	rec := doJSON(t, a.Router(), http.MethodPost, "/ingest/text", map[string]interface{}{
		"source_title": "no text",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthTokenGuardsWrites(t *testing.T) {
	srv, _ := fakeModelServer(t)
	a := newTestApp(t, srv.URL, "sekrit")
	router := a.Router()

	// Reads stay open.
	rec := doJSON(t, router, http.MethodGet, "/content_items", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := map[string]interface{}{"text": "guarded ingest"}
	rec = doJSON(t, router, http.MethodPost, "/ingest/text", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/ingest/text", body, map[string]string{
		"Authorization": "Bearer sekrit",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var item models.ContentItemModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))

	rec = doJSON(t, router, http.MethodDelete, "/content_items/"+item.ID, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/content_items/"+item.ID, nil, map[string]string{
		"Authorization": "Bearer sekrit",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
}
