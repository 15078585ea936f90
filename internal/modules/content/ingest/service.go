package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/modules/gateway/gateway"
	"github.com/tracepaper/core/internal/modules/processing/embedding"
	"github.com/tracepaper/core/internal/modules/processing/transform"
	"github.com/tracepaper/core/internal/pkg/vectorindex"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service runs the ingest pipeline: transform hooks, content-hash dedup,
// source resolution, persistence, and embedding into the vector index.
type Service struct {
	db         *gorm.DB
	cfg        *config.AppConfig
	embedder   embedding.Embedder
	index      vectorindex.Index
	transforms *transform.Service // optional
	hub        *gateway.Hub       // optional
	logger     *zap.Logger
}

func NewService(
	db *gorm.DB,
	cfg *config.AppConfig,
	embedder embedding.Embedder,
	index vectorindex.Index,
	transforms *transform.Service,
	hub *gateway.Hub,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         db,
		cfg:        cfg,
		embedder:   embedder,
		index:      index,
		transforms: transforms,
		hub:        hub,
		logger:     logger,
	}
}

// Input is one piece of content entering the pipeline.
type Input struct {
	Text        string
	SourceType  string
	SourceTitle string
	SourceURL   string
	Metadata    map[string]interface{}
}

// Ingest persists one piece of content. Identical text short-circuits to the
// already stored item; created reports whether this call stored a new one.
func (s *Service) Ingest(ctx context.Context, in Input) (item *models.ContentItemModel, created bool, err error) {
	if in.SourceType == "" {
		in.SourceType = models.SourceTypeManualText
	}

	if s.transforms != nil && s.cfg.Transforms.Enable {
		hooked := s.transforms.Apply(transform.Item{
			TextContent: in.Text,
			SourceType:  in.SourceType,
			SourceTitle: in.SourceTitle,
			SourceURL:   in.SourceURL,
			Metadata:    in.Metadata,
		})
		in.Text = hooked.TextContent
		in.SourceType = hooked.SourceType
		in.SourceTitle = hooked.SourceTitle
		in.SourceURL = hooked.SourceURL
		in.Metadata = hooked.Metadata
	}

	hash := hashText(in.Text)

	if existing, err := s.findByHash(hash); err != nil {
		return nil, false, err
	} else if existing != nil {
		// Same text arriving again still refreshes a stale webpage title.
		if err := s.refreshSourceTitle(existing, in); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	source, err := s.resolveSource(in.SourceType, in.SourceURL, in.SourceTitle)
	if err != nil {
		return nil, false, err
	}

	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return nil, false, err
	}

	m := models.ContentItemModel{
		TextContent: in.Text,
		ContentHash: hash,
		Metadata:    metadata,
		SourceID:    source.ID,
	}
	if err := s.db.Create(&m).Error; err != nil {
		// A concurrent ingest of the same text may have won the unique
		// index race; fall back to the stored row.
		if existing, lookupErr := s.findByHash(hash); lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}

	s.embedItem(ctx, &m)

	stored, err := s.reload(m.ID)
	if err != nil {
		return nil, false, err
	}

	if s.hub != nil {
		s.hub.BroadcastPublic("ITEM_CREATE", stored)
	}
	return stored, true, nil
}

// embedItem pushes the item into the vector index and stamps processed_at.
// Embedding failures are logged and leave the item unprocessed; the backfill
// job retries those later.
func (s *Service) embedItem(ctx context.Context, item *models.ContentItemModel) {
	vectors, err := s.embedder.Embed(ctx, []string{item.TextContent})
	if err != nil || len(vectors) != 1 {
		if err == nil {
			err = fmt.Errorf("expected 1 vector, got %d", len(vectors))
		}
		s.logger.Warn("ingest: embedding failed",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return
	}

	if err := s.index.Add(ctx, item.ID, vectors[0]); err != nil {
		s.logger.Warn("ingest: vector index add failed",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return
	}

	now := time.Now()
	if err := s.db.Model(item).Update("processed_at", &now).Error; err != nil {
		s.logger.Warn("ingest: cannot stamp processed_at",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return
	}
	item.ProcessedAt = &now

	if s.hub != nil {
		s.hub.BroadcastPublic("ITEM_PROCESSED", map[string]interface{}{
			"id":           item.ID,
			"processed_at": now,
		})
	}
}

// EmbedBacklog embeds items whose processed_at is still unset, oldest first.
// Returns how many items were processed.
func (s *Service) EmbedBacklog(ctx context.Context, limit int) (int, error) {
	var items []models.ContentItemModel
	err := s.db.
		Where("processed_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range items {
		s.embedItem(ctx, &items[i])
		if items[i].ProcessedAt != nil {
			processed++
		}
	}
	return processed, nil
}

func (s *Service) findByHash(hash string) (*models.ContentItemModel, error) {
	var item models.ContentItemModel
	err := s.db.
		Preload("Source").
		Preload("AISummary").
		Where("content_hash = ?", hash).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Service) reload(id string) (*models.ContentItemModel, error) {
	var item models.ContentItemModel
	err := s.db.
		Preload("Source").
		Preload("AISummary").
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// resolveSource reuses the source registered under the same URL, otherwise
// records a new one. Untracked sources (no URL) always get a fresh row.
func (s *Service) resolveSource(sourceType, url, title string) (*models.SourceModel, error) {
	if url == "" {
		source := models.SourceModel{Type: sourceType, Title: title}
		if err := s.db.Create(&source).Error; err != nil {
			return nil, err
		}
		return &source, nil
	}

	var source models.SourceModel
	err := s.db.Where("url = ?", url).First(&source).Error
	if err == nil {
		if sourceType == models.SourceTypeWebpage && title != "" && source.Title != title {
			if err := s.db.Model(&source).Update("title", title).Error; err != nil {
				return nil, err
			}
			source.Title = title
		}
		return &source, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	source = models.SourceModel{Type: sourceType, URL: url, Title: title}
	if err := s.db.Create(&source).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

func (s *Service) refreshSourceTitle(item *models.ContentItemModel, in Input) error {
	if item.Source == nil || in.SourceType != models.SourceTypeWebpage {
		return nil
	}
	if in.SourceTitle == "" || item.Source.Title == in.SourceTitle {
		return nil
	}
	if err := s.db.Model(item.Source).Update("title", in.SourceTitle).Error; err != nil {
		return err
	}
	item.Source.Title = in.SourceTitle
	return nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

func encodeMetadata(metadata map[string]interface{}) (datatypes.JSON, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// trimmedOrDefault keeps handler code free of repeated trim-and-default.
func trimmedOrDefault(raw, fallback string) string {
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return fallback
}
