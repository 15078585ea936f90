package ai

import (
	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/modules/gateway/gateway"
	"github.com/tracepaper/core/internal/pkg/taskqueue"
	"gorm.io/gorm"
)

// Service generates and stores item summaries.
type Service struct {
	db      *gorm.DB
	cfg     *config.AppConfig
	hub     *gateway.Hub       // optional
	taskSvc *taskqueue.Service // optional, nil when redis is off
}

func NewService(db *gorm.DB, cfg *config.AppConfig, hub *gateway.Hub, taskSvc *taskqueue.Service) *Service {
	return &Service{db: db, cfg: cfg, hub: hub, taskSvc: taskSvc}
}
