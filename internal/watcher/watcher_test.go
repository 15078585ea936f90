package watcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/models"
)

// fakeBackend records every ingest payload and answers with a configurable
// status code.
type fakeBackend struct {
	mu       sync.Mutex
	status   int
	payloads []ingestPayload
	lastAuth string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{status: http.StatusCreated}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ingest/text", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p ingestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))

		fb.mu.Lock()
		fb.payloads = append(fb.payloads, p)
		fb.lastAuth = r.Header.Get("Authorization")
		status := fb.status
		fb.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"message":"upstream rejected"}`))
		} else {
			_, _ = w.Write([]byte(`{"data":{}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (f *fakeBackend) setStatus(code int) {
	f.mu.Lock()
	f.status = code
	f.mu.Unlock()
}

func (f *fakeBackend) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeBackend) byTitle(title string) (ingestPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payloads {
		if p.SourceTitle == title {
			return p, true
		}
	}
	return ingestPayload{}, false
}

func newTestWatcher(backendURL, dir string, debounceMS int) *Service {
	cfg := &config.AppConfig{
		Watcher: config.WatcherConfig{
			BackendURL:  backendURL,
			Directories: []string{dir},
			Extensions:  []string{"md", ".TXT", ".pdf"},
			DebounceMS:  debounceMS,
		},
	}
	return New(cfg, zap.NewNop())
}

func TestSourceTypeForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"notes/a.md", models.SourceTypeMarkdown},
		{"B.MD", models.SourceTypeMarkdown},
		{"long.markdown", models.SourceTypeMarkdown},
		{"paper.pdf", models.SourceTypePDF},
		{"paper.PDF", models.SourceTypePDF},
		{"todo.txt", models.SourceTypeTextFile},
		{"Makefile", models.SourceTypeTextFile},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sourceTypeForPath(tt.path), tt.path)
	}
}

func TestNormalizeExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".md", normalizeExt("md"))
	assert.Equal(t, ".md", normalizeExt(".MD"))
	assert.Equal(t, ".txt", normalizeExt("  .TXT "))
	assert.Equal(t, "", normalizeExt("   "))
}

func TestClientIngestText(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBackend(t)

	client := NewClient(srv.URL+"/", "sekrit")
	payload := ingestPayload{
		Text:        "hello",
		SourceType:  models.SourceTypeMarkdown,
		SourceTitle: "a.md",
		SourceURL:   "/tmp/a.md",
	}

	created, err := client.IngestText(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Bearer sekrit", fb.auth())

	got, ok := fb.byTitle("a.md")
	require.True(t, ok)
	assert.Equal(t, payload, got)

	fb.setStatus(http.StatusOK)
	created, err = client.IngestText(context.Background(), payload)
	require.NoError(t, err)
	assert.False(t, created)

	fb.setStatus(http.StatusConflict)
	created, err = client.IngestText(context.Background(), payload)
	require.NoError(t, err)
	assert.False(t, created)

	fb.setStatus(http.StatusUnprocessableEntity)
	_, err = client.IngestText(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "upstream rejected")
}

func TestScanOncePostsWatchedFiles(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBackend(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	files := map[string]string{
		"a.md":       "# Title\n\nhello world",
		"b.txt":      "plain text body",
		"c.bin":      "binary-ish",
		".hidden.md": "secret",
		".git/d.md":  "repo internals",
		"empty.md":   "",
		"sub/e.txt":  "nested note",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	svc := newTestWatcher(srv.URL, dir, 0)
	stats, err := svc.ScanOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Scanned, "hidden files and unwatched extensions stay out of the sweep")
	assert.Equal(t, 3, stats.Ingested)
	assert.Equal(t, 1, stats.Skipped, "blank markdown is skipped")
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 3, fb.count())

	md, ok := fb.byTitle("a.md")
	require.True(t, ok)
	assert.Equal(t, models.SourceTypeMarkdown, md.SourceType)
	assert.Equal(t, filepath.Join(dir, "a.md"), md.SourceURL)
	assert.Contains(t, md.Text, "hello world")

	txt, ok := fb.byTitle("b.txt")
	require.True(t, ok)
	assert.Equal(t, models.SourceTypeTextFile, txt.SourceType)

	nested, ok := fb.byTitle("e.txt")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "sub", "e.txt"), nested.SourceURL)

	_, ok = fb.byTitle(".hidden.md")
	assert.False(t, ok)
}

func TestScanOnceSkipsUnchangedFiles(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBackend(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("first"), 0o644))

	svc := newTestWatcher(srv.URL, dir, 0)
	_, err := svc.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, fb.count())

	stats, err := svc.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 0, stats.Ingested)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, fb.count(), "unchanged mtime must not re-upload")

	// Touching the file with a new mtime re-uploads it.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.md"), future, future))
	stats, err = svc.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested)
	assert.Equal(t, 2, fb.count())
}

func TestScanOnceRetriesFailedUploads(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBackend(t)
	fb.setStatus(http.StatusInternalServerError)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("retry me"), 0o644))

	svc := newTestWatcher(srv.URL, dir, 0)
	stats, err := svc.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Ingested)

	fb.setStatus(http.StatusCreated)
	stats, err = svc.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested, "failed uploads are retried on the next sweep")

	stats, err = svc.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
}

func TestScanOnceTreatsDuplicateAsUploaded(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBackend(t)
	fb.setStatus(http.StatusConflict)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("known content"), 0o644))

	svc := newTestWatcher(srv.URL, dir, 0)
	stats, err := svc.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested)
	assert.Equal(t, 0, stats.Failed)

	stats, err = svc.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped, "duplicate answers still settle the mtime")
}

func TestWatchRequiresDirectories(t *testing.T) {
	t.Parallel()

	svc := New(&config.AppConfig{Watcher: config.WatcherConfig{BackendURL: "http://127.0.0.1:1"}}, zap.NewNop())
	err := svc.Watch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no watch directories")
}

func TestWatchPicksUpNewFiles(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBackend(t)
	dir := t.TempDir()

	svc := newTestWatcher(srv.URL, dir, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx) }()

	// The initial sweep runs after the directory is registered, so the file is
	// picked up either by that sweep or by the create event.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.md"), []byte("arrived after startup"), 0o644))

	require.Eventually(t, func() bool { return fb.count() >= 1 }, 3*time.Second, 20*time.Millisecond,
		"file created while watching must be uploaded")

	p, ok := fb.byTitle("late.md")
	require.True(t, ok)
	assert.Equal(t, models.SourceTypeMarkdown, p.SourceType)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}
