package ai

import (
	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/pkg/pagination"
	"github.com/tracepaper/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/summaries", authMW)
	g.GET("", h.listSummaries)
	g.GET("/tasks/:id", h.getSummaryTask)
}

// GET /summaries  [auth]
func (h *Handler) listSummaries(c *gin.Context) {
	q := pagination.FromContext(c)
	summaries, p, err := h.svc.List(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, summaries, p)
}

// GET /summaries/tasks/:id  [auth]
func (h *Handler) getSummaryTask(c *gin.Context) {
	if h.svc.taskSvc == nil {
		response.BadRequest(c, "Task queue is not configured")
		return
	}
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}
