package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/middleware"
	"github.com/tracepaper/core/internal/modules/content/ingest"
	"github.com/tracepaper/core/internal/modules/content/item"
	"github.com/tracepaper/core/internal/modules/content/search"
	"github.com/tracepaper/core/internal/modules/gateway/gateway"
	"github.com/tracepaper/core/internal/modules/processing/ai"
	"github.com/tracepaper/core/internal/modules/processing/embedding"
	"github.com/tracepaper/core/internal/modules/processing/transform"
	"github.com/tracepaper/core/internal/modules/storage/backup"
	"github.com/tracepaper/core/internal/modules/system/core/health"
	"github.com/tracepaper/core/internal/modules/system/stats"
	"github.com/tracepaper/core/internal/pkg/response"
	"github.com/tracepaper/core/internal/pkg/taskqueue"
)

func (a *App) registerRoutes() {
	r := a.router
	db := a.db
	cfg := a.cfg
	logger := a.logger
	authMW := middleware.RequireAuth(cfg.AuthToken)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "tracepaper-core",
		"version":  "1.0.0",
		"homepage": "https://github.com/tracepaper/core",
	}

	r.Use(middleware.TokenAuth(cfg.AuthToken))
	if a.rc != nil {
		r.Use(middleware.RateLimit(a.rc.Raw()))
		r.Use(middleware.Idempotence(a.rc.Raw()))
	}

	root := r.Group("")
	if a.rc != nil {
		root.Use(middleware.HTTPCache(a.rc.Raw(), middleware.HTTPCacheOptions{
			TTL:       15 * time.Second,
			Disable:   cfg.IsDev(),
			SkipPaths: httpCacheSkipPaths(),
		}))
	}

	// Shared services
	embedder := embedding.New(cfg.AI.Embedding)
	transforms := transform.NewService(cfg.TransformsDir(), cfg.Transforms.TimeoutMS, logger)
	var ingestTransforms *transform.Service
	if cfg.Transforms.Enable {
		ingestTransforms = transforms
	}
	var taskSvc *taskqueue.Service
	if a.rc != nil {
		taskSvc = taskqueue.NewService(a.rc)
	}

	itemSvc := item.NewService(db, a.index, logger)
	aiSvc := ai.NewService(db, cfg, a.hub, taskSvc)
	ingestSvc := ingest.NewService(db, cfg, embedder, a.index, ingestTransforms, a.hub, logger)
	searchSvc := search.NewService(itemSvc, embedder, a.index, search.WithLogger(logger))
	backupSvc := backup.NewService(db, cfg, a.hub, logger)

	a.ingestSvc = ingestSvc
	a.aiSvc = aiSvc
	a.backupSvc = backupSvc

	root.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	root.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	root.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	root.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(processStart).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})

	// Infrastructure
	health.RegisterRoutes(root, db, a.sched, authMW)
	stats.RegisterRoutes(root, db, a.index, a.hub, logger)

	// Ingest pipeline and content access
	ingest.NewHandler(ingestSvc, a.rc, logger).RegisterRoutes(root, authMW)
	item.NewHandler(itemSvc, aiSvc, a.hub, a.rc, logger).RegisterRoutes(root, authMW)
	search.NewHandler(searchSvc).RegisterRoutes(root, authMW)
	ai.NewHandler(aiSvc).RegisterRoutes(root, authMW)
	transform.NewHandler(transforms).RegisterRoutes(root, authMW)

	// Backups
	backup.NewHandler(backupSvc).RegisterRoutes(root, authMW)

	// WebSocket gateway
	gateway.RegisterRoutes(root, a.hub)

	root.GET("/clean_cache", authMW, func(c *gin.Context) {
		deleted := int64(0)
		if a.rc != nil {
			var err error
			deleted, err = middleware.PurgeHTTPCache(c.Request.Context(), a.rc.Raw())
			if err != nil {
				response.InternalError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
	})
}

// httpCacheSkipPaths lists routes the response cache must never serve:
// live status, task polling, websocket transport, and GETs with side effects.
func httpCacheSkipPaths() []string {
	return []string{
		"/",
		"/info",
		"/ping",
		"/uptime",
		"/health*",
		"/stats",
		"/gateway*",
		"/socket.io*",
		"/clean_cache",
		"/summaries/tasks*",
		"/backups*",
	}
}
