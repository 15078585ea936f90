package stats

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/modules/gateway/gateway"
	"github.com/tracepaper/core/internal/pkg/response"
	"github.com/tracepaper/core/internal/pkg/vectorindex"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type statResponse struct {
	Sources        int64 `json:"sources"`
	ContentItems   int64 `json:"content_items"`
	Summaries      int64 `json:"summaries"`
	Unprocessed    int64 `json:"unprocessed"`
	IndexedVectors int64 `json:"indexed_vectors"`
	TodayIngested  int64 `json:"today_ingested"`
	Online         int64 `json:"online"`
}

// RegisterRoutes mounts the aggregate stats endpoint.
func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, index vectorindex.Index, hub *gateway.Hub, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rg.GET("/stats", func(c *gin.Context) {
		var stat statResponse
		db.Model(&models.SourceModel{}).Count(&stat.Sources)
		db.Model(&models.ContentItemModel{}).Count(&stat.ContentItems)
		db.Model(&models.SummaryModel{}).Count(&stat.Summaries)
		db.Model(&models.ContentItemModel{}).Where("processed_at IS NULL").Count(&stat.Unprocessed)

		todayStart := beginningOfDay(time.Now())
		db.Model(&models.ContentItemModel{}).Where("created_at >= ?", todayStart).Count(&stat.TodayIngested)

		if index != nil {
			if count, err := index.Count(c.Request.Context()); err != nil {
				logger.Warn("stats: vector index count failed", zap.Error(err))
			} else {
				stat.IndexedVectors = int64(count)
			}
		}
		if hub != nil {
			stat.Online = int64(hub.ClientCount(gateway.RoomPublic))
		}

		response.OK(c, stat)
	})
}

func beginningOfDay(t time.Time) time.Time {
	local := t.In(time.Local)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
