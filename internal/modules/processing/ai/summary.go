package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/pkg/pagination"
	"github.com/tracepaper/core/internal/pkg/response"
	"gorm.io/gorm"
)

// ErrNoText is returned when an item holds nothing worth summarizing.
var ErrNoText = errors.New("content item has no text to summarize")

// SummaryForItem returns the stored summary for an item, or (nil, nil) when
// none exists yet.
func (s *Service) SummaryForItem(itemID string) (*models.SummaryModel, error) {
	var summary models.SummaryModel
	if err := s.db.Where("content_item_id = ?", itemID).First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// GenerateForItem produces and stores the summary of one content item.
// Repeat calls return the stored summary without touching the model again;
// created reports whether this call did the generation.
func (s *Service) GenerateForItem(ctx context.Context, item *models.ContentItemModel) (summary *models.SummaryModel, created bool, err error) {
	existing, err := s.SummaryForItem(item.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	text := strings.TrimSpace(item.TextContent)
	if text == "" {
		return nil, false, ErrNoText
	}

	summaryText, err := callSummaryModel(ctx, s.cfg.AI.Summary, text)
	if err != nil {
		return nil, false, fmt.Errorf("summary model call failed: %w", err)
	}

	m := models.SummaryModel{
		SummaryText:   summaryText,
		ModelUsed:     strings.TrimSpace(s.cfg.AI.Summary.Model),
		Type:          models.SummaryTypeAIGenerated,
		ContentItemID: item.ID,
	}
	if err := s.db.Create(&m).Error; err != nil {
		// A concurrent summarize call may have won the unique index race.
		if existing, lookupErr := s.SummaryForItem(item.ID); lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}

	if s.hub != nil {
		s.hub.BroadcastPublic("SUMMARY_CREATE", m)
	}
	return &m, true, nil
}

// DeleteForItem removes the stored summary of an item so the next summarize
// call regenerates it. Reports whether a summary existed.
func (s *Service) DeleteForItem(itemID string) (bool, error) {
	res := s.db.Where("content_item_id = ?", itemID).Delete(&models.SummaryModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List returns stored summaries, newest first.
func (s *Service) List(q pagination.Query) ([]models.SummaryModel, response.Pagination, error) {
	var summaries []models.SummaryModel
	p, err := pagination.Paginate[models.SummaryModel](
		s.db.Model(&models.SummaryModel{}).Order("created_at DESC"),
		q,
		&summaries,
	)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return summaries, p, nil
}

// unsummarizedItemIDs returns IDs of items that have no stored summary yet.
func (s *Service) unsummarizedItemIDs(limit int) ([]string, error) {
	sub := s.db.Model(&models.SummaryModel{}).Select("content_item_id")
	var ids []string
	err := s.db.Model(&models.ContentItemModel{}).
		Where("id NOT IN (?)", sub).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
