package search

import (
	"context"
	"fmt"

	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/modules/content/item"
	"github.com/tracepaper/core/internal/modules/processing/embedding"
	"github.com/tracepaper/core/internal/pkg/vectorindex"
	"go.uber.org/zap"
)

// Service answers semantic queries: it embeds the query text, ranks stored
// vectors, and resolves the winning IDs back to content items.
type Service struct {
	items    *item.Service
	embedder embedding.Embedder
	index    vectorindex.Index
	logger   *zap.Logger
}

func NewService(items *item.Service, embedder embedding.Embedder, index vectorindex.Index, opts ...ServiceOption) *Service {
	s := &Service{items: items, embedder: embedder, index: index, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ServiceOption configures a search Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the search service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("SearchService")
		}
	}
}

// Hit is one ranked search result. Score is cosine similarity, higher is
// closer.
type Hit struct {
	models.ContentItemModel
	Score float32 `json:"score"`
}

// Search returns the k closest items to the query, best first. An empty
// index yields an empty result, not an error. IDs that rank but no longer
// resolve to a stored row are skipped.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	matches, err := s.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(matches) == 0 {
		return []Hit{}, nil
	}

	ids := make([]string, len(matches))
	scoreByID := make(map[string]float32, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		scoreByID[m.ID] = m.Score
	}

	items, err := s.items.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(items) < len(matches) {
		s.logger.Debug("search: index entries without stored rows skipped",
			zap.Int("matches", len(matches)),
			zap.Int("resolved", len(items)),
		)
	}

	hits := make([]Hit, len(items))
	for i := range items {
		hits[i] = Hit{ContentItemModel: items[i], Score: scoreByID[items[i].ID]}
	}
	return hits, nil
}
