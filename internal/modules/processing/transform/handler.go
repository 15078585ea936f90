package transform

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/transforms", authMW)
	g.POST("/test", h.testTransform)
}

type testTransformDTO struct {
	Code     string `json:"code" binding:"required"`
	Filename string `json:"filename"`
	Item     Item   `json:"item"`
}

// POST /transforms/test  [auth]
// Runs a script body once against a sample item without saving anything.
func (h *Handler) testTransform(c *gin.Context) {
	var dto testTransformDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	filename := dto.Filename
	if filename == "" {
		filename = "test.ts"
	}

	result, err := h.svc.RunSource(dto.Code, filename, dto.Item)
	if err != nil {
		var execErr *vmExecError
		if errors.As(err, &execErr) {
			c.AbortWithStatusJSON(execErr.Status, gin.H{
				"ok":      0,
				"code":    execErr.Status,
				"message": execErr.Message,
			})
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, result)
}
