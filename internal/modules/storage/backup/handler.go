package backup

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/pkg/response"
)

const uploadLimit = 128 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/backups", authMW)

	g.GET("", h.list)
	g.GET("/new", h.createAndDownload)
	g.GET("/:filename", h.download)
	g.POST("/rollback", h.uploadAndRestore)
	g.PATCH("/rollback/:filename", h.rollback)
	g.DELETE("/:filename", h.deleteOne)
}

func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.svc.List())
}

func (h *Handler) createAndDownload(c *gin.Context) {
	item, err := h.svc.Create(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}

	data, err := h.svc.ReadArchive(item.Filename)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, item.Filename))
	c.Data(http.StatusOK, "application/zip", data)
}

func (h *Handler) download(c *gin.Context) {
	filename := c.Param("filename")
	data, err := h.svc.ReadArchive(filename)
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}

func (h *Handler) uploadAndRestore(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Missing backup file upload")
		return
	}
	if file.Size > uploadLimit {
		response.BadRequest(c, "Backup file is too large")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, uploadLimit))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.restoreArchive(c, data)
}

func (h *Handler) rollback(c *gin.Context) {
	data, err := h.svc.ReadArchive(c.Param("filename"))
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	h.restoreArchive(c, data)
}

func (h *Handler) restoreArchive(c *gin.Context, data []byte) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		response.BadRequest(c, "Invalid backup archive")
		return
	}
	if err := h.svc.Restore(zr); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "restore successful"})
}

func (h *Handler) deleteOne(c *gin.Context) {
	if err := h.svc.Delete(c.Param("filename")); err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}
