package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/modules/processing/extract"
)

// ScanStats counts the outcome of one sweep over the watched folders.
type ScanStats struct {
	Scanned  int
	Ingested int
	Skipped  int
	Failed   int
}

// ScanOnce walks every watched folder and ingests files that are new or
// changed since the last successful upload. Unreadable entries are logged
// and skipped so one bad file cannot stall the sweep.
func (s *Service) ScanOnce(ctx context.Context) (ScanStats, error) {
	var stats ScanStats
	for _, dir := range s.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("scan entry failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if isHiddenName(d.Name()) && path != dir {
					return filepath.SkipDir
				}
				return nil
			}
			if isHiddenName(d.Name()) || !s.matchesExtension(path) {
				return nil
			}
			stats.Scanned++
			switch outcome := s.ingestFile(ctx, path); outcome {
			case outcomeIngested:
				stats.Ingested++
			case outcomeSkipped:
				stats.Skipped++
			case outcomeFailed:
				stats.Failed++
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

type ingestOutcome int

const (
	outcomeIngested ingestOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// ingestFile uploads a single file unless its mtime matches the last upload.
// The mtime is remembered only after the backend accepted the content, so a
// failed upload is retried on the next sweep.
func (s *Service) ingestFile(ctx context.Context, path string) ingestOutcome {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("stat file failed", zap.String("path", path), zap.Error(err))
		return outcomeFailed
	}
	modTime := info.ModTime().UnixNano()
	if s.alreadySeen(path, modTime) {
		return outcomeSkipped
	}

	text, blank, err := s.loadText(path)
	if err != nil {
		s.logger.Warn("read file failed", zap.String("path", path), zap.Error(err))
		return outcomeFailed
	}
	if blank {
		// Nothing to ingest, but remember the mtime so the file is not
		// re-read every sweep.
		s.remember(path, modTime)
		return outcomeSkipped
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	created, err := s.client.IngestText(ctx, ingestPayload{
		Text:        text,
		SourceType:  sourceTypeForPath(path),
		SourceTitle: filepath.Base(path),
		SourceURL:   abs,
	})
	if err != nil {
		s.logger.Warn("upload failed", zap.String("path", path), zap.Error(err))
		return outcomeFailed
	}

	s.remember(path, modTime)
	if created {
		s.logger.Info("ingested file", zap.String("path", path))
	} else {
		s.logger.Debug("file already known to backend", zap.String("path", path))
	}
	return outcomeIngested
}

// loadText extracts the uploadable text of a file. Markdown and plain text
// are posted raw; PDFs are flattened to their page text. blank=true means
// the file holds nothing worth ingesting.
func (s *Service) loadText(path string) (text string, blank bool, err error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = extract.PDFText(path)
		if err != nil {
			return "", false, err
		}
		return text, strings.TrimSpace(text) == "", nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	switch sourceTypeForPath(path) {
	case models.SourceTypeMarkdown:
		return string(raw), extract.MarkdownIsBlank(raw), nil
	default:
		return string(raw), strings.TrimSpace(string(raw)) == "", nil
	}
}

func sourceTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return models.SourceTypeMarkdown
	case ".pdf":
		return models.SourceTypePDF
	default:
		return models.SourceTypeTextFile
	}
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}
