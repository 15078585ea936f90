package search

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/pkg/response"
)

const (
	defaultK = 5
	maxK     = 100
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/search", h.search)
}

// search GET /search?query=...&k=5
func (h *Handler) search(c *gin.Context) {
	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		response.BadRequest(c, "Query cannot be empty")
		return
	}

	k := defaultK
	if raw := c.Query("k"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			k = v
		}
	}
	if k > maxK {
		k = maxK
	}

	hits, err := h.svc.Search(c.Request.Context(), query, k)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, hits)
}
