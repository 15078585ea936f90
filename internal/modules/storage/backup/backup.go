package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/modules/gateway/gateway"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tableNames lists the tables included in a backup archive. Restore applies
// them in this order so parent rows land before their children.
var tableNames = []string{"sources", "content_items", "summaries"}

const vectorSnapshotEntry = "vector_index.bin"

// Service builds, stores, restores and prunes backup archives.
type Service struct {
	db     *gorm.DB
	cfg    *config.AppConfig
	hub    *gateway.Hub
	logger *zap.Logger
}

func NewService(db *gorm.DB, cfg *config.AppConfig, hub *gateway.Hub, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cfg: cfg, hub: hub, logger: logger}
}

func (s *Service) Dir() string {
	return s.cfg.BackupDir()
}

type Item struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
	Created  int64  `json:"created"`
}

func (s *Service) List() []Item {
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		return []Item{}
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{
			Filename: e.Name(),
			Size:     formatSize(info.Size()),
			Created:  info.ModTime().UnixMilli(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Filename > items[j].Filename })
	return items
}

// Archive dumps every table as JSON and bundles the vector index snapshot
// when one exists on disk.
func (s *Service) Archive() (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	for _, table := range tableNames {
		var rows []map[string]interface{}
		if err := s.db.Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("dump table %s: %w", table, err)
		}
		data, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("encode table %s: %w", table, err)
		}
		f, err := w.Create(table + ".json")
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(data); err != nil {
			return nil, err
		}
	}

	if snapshot, err := os.ReadFile(s.cfg.VectorIndexPath()); err == nil && len(snapshot) > 0 {
		f, err := w.Create(vectorSnapshotEntry)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(snapshot); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// Create writes a new archive into the backup directory, prunes old ones,
// uploads to S3 when configured and announces the result to admin clients.
func (s *Service) Create(ctx context.Context) (Item, error) {
	now := time.Now()
	buf, err := s.Archive()
	if err != nil {
		return Item{}, err
	}

	dir := s.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Item{}, err
	}

	filename := fmt.Sprintf("backup-%s.zip", now.Format("2006-01-02T15-04-05"))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Item{}, err
	}

	s.prune()

	if strings.TrimSpace(s.cfg.Backup.S3.Bucket) != "" {
		if err := s.uploadToS3(ctx, filename, buf.Bytes(), now); err != nil {
			s.logger.Warn("backup: s3 upload failed", zap.String("filename", filename), zap.Error(err))
		}
	}

	item := Item{Filename: filename, Size: formatSize(int64(buf.Len())), Created: now.UnixMilli()}
	if s.hub != nil {
		s.hub.BroadcastAdmin("BACKUP_COMPLETE", item)
	}
	s.logger.Info("backup created", zap.String("filename", filename), zap.String("size", item.Size))
	return item, nil
}

// prune keeps the most recent N archives. Filenames embed a zero-padded
// timestamp, so lexicographic order is chronological.
func (s *Service) prune() {
	keep := s.cfg.Backup.Keep
	if keep <= 0 {
		return
	}

	items := s.List()
	if len(items) <= keep {
		return
	}
	for _, item := range items[keep:] {
		if err := os.Remove(filepath.Join(s.Dir(), item.Filename)); err != nil {
			s.logger.Warn("backup: prune failed", zap.String("filename", item.Filename), zap.Error(err))
		}
	}
}

func (s *Service) ReadArchive(filename string) ([]byte, error) {
	name := filepath.Base(filename)
	if !strings.HasSuffix(name, ".zip") {
		return nil, fmt.Errorf("invalid backup filename")
	}
	return os.ReadFile(filepath.Join(s.Dir(), name))
}

func (s *Service) Delete(filename string) error {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || !strings.HasSuffix(name, ".zip") {
		return fmt.Errorf("invalid backup filename")
	}
	return os.Remove(filepath.Join(s.Dir(), name))
}

// Restore replaces table contents with the dumps found in the archive and
// clears processed_at on every content item. The live vector index does not
// match restored rows, so the embedding backfill re-indexes them.
func (s *Service) Restore(zr *zip.Reader) error {
	dumps := make(map[string][]map[string]interface{})
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".json") {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(f.Name), ".json")
		if !isBackupTable(name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}

		var rows []map[string]interface{}
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("decode %s: %w", f.Name, err)
		}
		dumps[name] = rows
	}
	if len(dumps) == 0 {
		return fmt.Errorf("archive contains no table dumps")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := len(tableNames) - 1; i >= 0; i-- {
			if err := tx.Exec("DELETE FROM " + tableNames[i]).Error; err != nil {
				return err
			}
		}
		for _, table := range tableNames {
			for _, row := range dumps[table] {
				if err := tx.Table(table).Create(row).Error; err != nil {
					return fmt.Errorf("restore %s: %w", table, err)
				}
			}
		}
		return tx.Exec("UPDATE content_items SET processed_at = NULL").Error
	})
}

func isBackupTable(name string) bool {
	for _, t := range tableNames {
		if name == t {
			return true
		}
	}
	return false
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
