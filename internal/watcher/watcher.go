// Package watcher is the producer side of the ingest pipeline: it watches
// configured folders for markdown, text and PDF files and posts their
// content to the backend API. Files are tracked by mtime, so restarting the
// watcher does not re-upload unchanged documents the backend already
// deduplicates anyway.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/tracepaper/core/internal/config"
)

type Service struct {
	cfg    config.WatcherConfig
	dirs   []string
	exts   map[string]struct{}
	client *Client
	logger *zap.Logger

	mu   sync.Mutex
	seen map[string]int64 // path -> mtime (ns) of the last accepted upload

	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

func New(cfg *config.AppConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	exts := make(map[string]struct{}, len(cfg.Watcher.Extensions))
	for _, ext := range cfg.Watcher.Extensions {
		if normalized := normalizeExt(ext); normalized != "" {
			exts[normalized] = struct{}{}
		}
	}
	return &Service{
		cfg:     cfg.Watcher,
		dirs:    cfg.WatchedDirectories(),
		exts:    exts,
		client:  NewClient(cfg.Watcher.BackendURL, cfg.AuthToken),
		logger:  logger,
		seen:    make(map[string]int64),
		pending: make(map[string]*time.Timer),
	}
}

// Watch runs until ctx is cancelled: an initial sweep, then filesystem
// events with debounce, plus an optional periodic rescan that catches
// anything the event stream missed.
func (s *Service) Watch(ctx context.Context) error {
	if len(s.dirs) == 0 {
		return fmt.Errorf("no watch directories configured")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range s.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Warn("create watch directory failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if err := s.watchTree(w, dir); err != nil {
			s.logger.Warn("watch directory failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		s.logger.Info("watching directory", zap.String("dir", dir))
	}

	if stats, err := s.ScanOnce(ctx); err != nil {
		s.logger.Warn("initial scan failed", zap.Error(err))
	} else {
		s.logSweep("initial scan finished", stats)
	}

	var rescan <-chan time.Time
	if s.cfg.RescanInterval > 0 {
		ticker := time.NewTicker(time.Duration(s.cfg.RescanInterval) * time.Second)
		defer ticker.Stop()
		rescan = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, w, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("fs watcher error", zap.Error(err))
		case <-rescan:
			if stats, err := s.ScanOnce(ctx); err != nil {
				s.logger.Warn("rescan failed", zap.Error(err))
			} else if stats.Ingested > 0 || stats.Failed > 0 {
				s.logSweep("rescan finished", stats)
			}
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, w *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		// New subdirectories must be added to the watch list; files created
		// inside before the Add lands are caught by the periodic rescan.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if isHiddenName(filepath.Base(event.Name)) {
				return
			}
			if err := s.watchTree(w, event.Name); err != nil {
				s.logger.Warn("watch new directory failed", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	if isHiddenName(filepath.Base(event.Name)) || !s.matchesExtension(event.Name) {
		return
	}
	s.scheduleIngest(ctx, event.Name)
}

// scheduleIngest delays the upload so editors that write a file in several
// bursts trigger one upload, not one per write.
func (s *Service) scheduleIngest(ctx context.Context, path string) {
	delay := time.Duration(s.cfg.DebounceMS) * time.Millisecond
	if delay <= 0 {
		s.ingestFile(ctx, path)
		return
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if timer, ok := s.pending[path]; ok {
		timer.Stop()
	}
	s.pending[path] = time.AfterFunc(delay, func() {
		s.pendingMu.Lock()
		delete(s.pending, path)
		s.pendingMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.ingestFile(ctx, path)
	})
}

func (s *Service) watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHiddenName(d.Name()) && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func (s *Service) matchesExtension(path string) bool {
	if len(s.exts) == 0 {
		return false
	}
	_, ok := s.exts[normalizeExt(filepath.Ext(path))]
	return ok
}

func (s *Service) alreadySeen(path string, modTime int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.seen[path]
	return ok && last == modTime
}

func (s *Service) remember(path string, modTime int64) {
	s.mu.Lock()
	s.seen[path] = modTime
	s.mu.Unlock()
}

func (s *Service) logSweep(msg string, stats ScanStats) {
	s.logger.Info(msg,
		zap.Int("scanned", stats.Scanned),
		zap.Int("ingested", stats.Ingested),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
}

func normalizeExt(ext string) string {
	trimmed := strings.ToLower(strings.TrimSpace(ext))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] != '.' {
		trimmed = "." + trimmed
	}
	return trimmed
}
