package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/database"
	"github.com/tracepaper/core/internal/middleware"
	"github.com/tracepaper/core/internal/modules/content/ingest"
	"github.com/tracepaper/core/internal/modules/gateway/gateway"
	"github.com/tracepaper/core/internal/modules/processing/ai"
	"github.com/tracepaper/core/internal/modules/storage/backup"
	pkgcron "github.com/tracepaper/core/internal/pkg/cron"
	pkgredis "github.com/tracepaper/core/internal/pkg/redis"
	"github.com/tracepaper/core/internal/pkg/vectorindex"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rc     *pkgredis.Client
	hub    *gateway.Hub
	index  vectorindex.Index
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	ingestSvc *ingest.Service
	aiSvc     *ai.Service
	backupSvc *backup.Service
}

// New initializes the application: config → DB → Redis → vector index → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.Redis.Enable {
		rc, err = pkgredis.Connect(cfg.Redis.URLValue())
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	index, err := buildVectorIndex(cfg)
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	err = index.Init(initCtx)
	cancelInit()
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "x-tp-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	hub := gateway.NewHub(rc, logger, func(token string) bool {
		return middleware.ValidateToken(token, cfg.AuthToken)
	})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		rc:     rc,
		hub:    hub,
		index:  index,
		logger: logger,
		cancel: cancel,
		sched:  pkgcron.New(),
	}
	app.registerRoutes()
	app.registerCronJobs()
	app.sched.Start(ctx)

	return app, nil
}

func buildVectorIndex(cfg *config.AppConfig) (vectorindex.Index, error) {
	dim := cfg.Vector.Dimension
	switch cfg.Vector.Provider {
	case "", "flat":
		return vectorindex.NewFlat(cfg.VectorIndexPath(), dim), nil
	case "qdrant":
		return vectorindex.NewQdrant(cfg.Vector.Qdrant.URL, cfg.Vector.Qdrant.APIKey, cfg.Vector.Qdrant.Collection, dim), nil
	default:
		return nil, fmt.Errorf("unknown vector provider %q", cfg.Vector.Provider)
	}
}

// Addr returns the listen address.
func (a *App) Addr() string { return a.cfg.Addr() }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines and persists the vector index.
func (a *App) Shutdown() {
	a.cancel()

	if err := a.index.Save(); err != nil {
		a.logger.Warn("vector index save failed", zap.Error(err))
	}
	if err := a.index.Close(); err != nil {
		a.logger.Warn("vector index close failed", zap.Error(err))
	}
}

var processStart = time.Now()
