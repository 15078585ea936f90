package item

import (
	"context"
	"errors"
	"strings"

	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/pkg/pagination"
	"github.com/tracepaper/core/internal/pkg/response"
	"github.com/tracepaper/core/internal/pkg/vectorindex"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service reads and removes stored content items.
type Service struct {
	db     *gorm.DB
	index  vectorindex.Index
	logger *zap.Logger
}

func NewService(db *gorm.DB, index vectorindex.Index, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, index: index, logger: logger}
}

// sortColumns is the whitelist of listing sort keys. Anything else falls
// back to created_at, matching how clients already probe this endpoint.
var sortColumns = map[string]string{
	"created_at":   "created_at",
	"processed_at": "processed_at",
	"updated_at":   "updated_at",
}

// List returns items with their source and summary preloaded.
func (s *Service) List(q pagination.Query, lq ListQuery) ([]models.ContentItemModel, response.Pagination, error) {
	column, ok := sortColumns[strings.ToLower(strings.TrimSpace(lq.SortBy))]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(lq.SortOrder), "asc") {
		direction = "ASC"
	}

	db := s.db.Model(&models.ContentItemModel{}).
		Preload("Source").
		Preload("AISummary").
		Order(column + " " + direction)

	if lq.SourceID != "" {
		db = db.Where("source_id = ?", lq.SourceID)
	}
	if lq.Processed != nil {
		if *lq.Processed {
			db = db.Where("processed_at IS NOT NULL")
		} else {
			db = db.Where("processed_at IS NULL")
		}
	}

	var items []models.ContentItemModel
	p, err := pagination.Paginate[models.ContentItemModel](db, q, &items)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return items, p, nil
}

// GetByID returns one item with relations, or (nil, nil) when absent.
func (s *Service) GetByID(id string) (*models.ContentItemModel, error) {
	var item models.ContentItemModel
	err := s.db.
		Preload("Source").
		Preload("AISummary").
		First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDs returns items in the order the IDs were given, silently skipping
// IDs with no stored row. Search relies on this to keep ranking order.
func (s *Service) GetByIDs(ids []string) ([]models.ContentItemModel, error) {
	if len(ids) == 0 {
		return []models.ContentItemModel{}, nil
	}

	var items []models.ContentItemModel
	err := s.db.
		Preload("Source").
		Preload("AISummary").
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.ContentItemModel, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	ordered := make([]models.ContentItemModel, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, *item)
		}
	}
	return ordered, nil
}

// Delete removes an item, its summary, and its index entry. Reports whether
// the item existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_item_id = ?", id).Delete(&models.SummaryModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ContentItemModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// The database row is gone either way; a failed index removal only
	// leaves a dangling vector that search skips when resolving IDs.
	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.Warn("item: vector index remove failed",
			zap.String("item_id", id),
			zap.Error(err),
		)
	}
	return true, nil
}
