package item

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/middleware"
	"github.com/tracepaper/core/internal/modules/gateway/gateway"
	"github.com/tracepaper/core/internal/modules/processing/ai"
	"github.com/tracepaper/core/internal/pkg/pagination"
	pkgredis "github.com/tracepaper/core/internal/pkg/redis"
	"github.com/tracepaper/core/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	aiSvc  *ai.Service
	hub    *gateway.Hub     // optional
	rc     *pkgredis.Client // optional
	logger *zap.Logger
}

func NewHandler(svc *Service, aiSvc *ai.Service, hub *gateway.Hub, rc *pkgredis.Client, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, aiSvc: aiSvc, hub: hub, rc: rc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/content_items")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/summarize", h.summarize)

	authed := g.Group("", authMW)
	authed.DELETE("/:id", h.delete)
	authed.DELETE("/:id/summary", h.deleteSummary)
}

// list GET /content_items
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)

	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	items, pag, err := h.svc.List(q, lq)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// get GET /content_items/:id
func (h *Handler) get(c *gin.Context) {
	item, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFoundMsg(c, "ContentItem not found")
		return
	}
	response.OK(c, item)
}

// summarize POST /content_items/:id/summarize
// Generates the item summary on first call and returns the stored one on
// every call after that.
func (h *Handler) summarize(c *gin.Context) {
	item, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFoundMsg(c, "ContentItem not found")
		return
	}

	summary, _, err := h.aiSvc.GenerateForItem(c.Request.Context(), item)
	if err != nil {
		if errors.Is(err, ai.ErrNoText) {
			response.BadRequest(c, "ContentItem has no text to summarize")
			return
		}
		response.InternalError(c, fmt.Errorf("Failed to generate summary: %w", err))
		return
	}
	response.OK(c, summary)
}

// delete DELETE /content_items/:id  [auth]
func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	found, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !found {
		response.NotFoundMsg(c, "ContentItem not found")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastPublic("ITEM_DELETE", gin.H{"id": id})
	}
	h.purgeCache(c)
	response.NoContent(c)
}

// deleteSummary DELETE /content_items/:id/summary  [auth]
// Drops the stored summary so the next summarize call regenerates it.
func (h *Handler) deleteSummary(c *gin.Context) {
	existed, err := h.aiSvc.DeleteForItem(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !existed {
		response.NotFoundMsg(c, "Summary not found")
		return
	}
	h.purgeCache(c)
	response.NoContent(c)
}

func (h *Handler) purgeCache(c *gin.Context) {
	if h.rc == nil {
		return
	}
	if _, err := middleware.PurgeHTTPCache(c.Request.Context(), h.rc.Raw()); err != nil {
		h.logger.Warn("item: http cache purge failed", zap.Error(err))
	}
}
