package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/middleware"
	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/modules/processing/extract"
	pkgredis "github.com/tracepaper/core/internal/pkg/redis"
	"github.com/tracepaper/core/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	webpageFetchTimeout = 15 * time.Second
	webpageBodyLimit    = 5 << 20
	audioUploadLimit    = 25 << 20
)

type Handler struct {
	svc    *Service
	rc     *pkgredis.Client // optional, purges the HTTP cache after writes
	logger *zap.Logger
}

func NewHandler(svc *Service, rc *pkgredis.Client, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, rc: rc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ingest", authMW)
	g.POST("/text", h.ingestText)
	g.POST("/webpage", h.ingestWebpage)
	g.POST("/audio", h.ingestAudio)
}

// POST /ingest/text
func (h *Handler) ingestText(c *gin.Context) {
	var dto IngestTextDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, created, err := h.svc.Ingest(c.Request.Context(), Input{
		Text:        dto.Text,
		SourceType:  trimmedOrDefault(dto.SourceType, models.SourceTypeManualText),
		SourceTitle: strings.TrimSpace(dto.SourceTitle),
		SourceURL:   strings.TrimSpace(dto.SourceURL),
		Metadata:    dto.Metadata,
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}

	h.respondIngested(c, item, created)
}

// POST /ingest/webpage
// With a text body this behaves like /ingest/text typed as webpage; without
// one the server fetches the URL and extracts the visible text itself.
func (h *Handler) ingestWebpage(c *gin.Context) {
	var dto IngestWebpageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	text := dto.Text
	title := strings.TrimSpace(dto.SourceTitle)

	if strings.TrimSpace(text) == "" {
		fetchedTitle, fetchedText, err := fetchWebpage(c.Request.Context(), dto.SourceURL)
		if err != nil {
			response.BadRequest(c, fmt.Sprintf("Failed to fetch webpage: %s", err.Error()))
			return
		}
		if fetchedText == "" {
			response.BadRequest(c, "Fetched webpage has no extractable text")
			return
		}
		text = fetchedText
		if title == "" {
			title = fetchedTitle
		}
	}

	item, created, err := h.svc.Ingest(c.Request.Context(), Input{
		Text:        text,
		SourceType:  models.SourceTypeWebpage,
		SourceTitle: title,
		SourceURL:   strings.TrimSpace(dto.SourceURL),
		Metadata:    dto.Metadata,
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}

	h.respondIngested(c, item, created)
}

// POST /ingest/audio
// Accepts a multipart upload, transcribes it through the configured speech
// model, then feeds the transcript through the normal ingest pipeline.
func (h *Handler) ingestAudio(c *gin.Context) {
	if !h.svc.cfg.AI.Transcription.Enable {
		response.BadRequest(c, "Audio transcription is not enabled")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Missing audio file upload")
		return
	}
	if fileHeader.Size > audioUploadLimit {
		response.BadRequest(c, "Audio file exceeds the 25 MiB upload limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer file.Close()

	text, err := transcribeAudio(c.Request.Context(), h.svc.cfg.AI.Transcription, file, fileHeader.Filename)
	if err != nil {
		response.InternalError(c, fmt.Errorf("transcription failed: %w", err))
		return
	}
	if strings.TrimSpace(text) == "" {
		response.BadRequest(c, "Transcription produced no text")
		return
	}

	item, created, err := h.svc.Ingest(c.Request.Context(), Input{
		Text:        text,
		SourceType:  models.SourceTypeAudio,
		SourceTitle: trimmedOrDefault(c.PostForm("source_title"), fileHeader.Filename),
		Metadata: map[string]interface{}{
			"filename":            fileHeader.Filename,
			"transcription_model": h.svc.cfg.AI.Transcription.Model,
		},
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}

	h.respondIngested(c, item, created)
}

func (h *Handler) respondIngested(c *gin.Context, item *models.ContentItemModel, created bool) {
	if created && h.rc != nil {
		if _, err := middleware.PurgeHTTPCache(c.Request.Context(), h.rc.Raw()); err != nil {
			h.logger.Warn("ingest: http cache purge failed", zap.Error(err))
		}
	}
	if created {
		response.Created(c, item)
		return
	}
	response.OK(c, item)
}

// fetchWebpage downloads a page and reduces it to its title and visible text.
func fetchWebpage(ctx context.Context, rawURL string) (title, text string, err error) {
	parsed, err := neturl.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "", "", errors.New("invalid url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", "tracepaper/1.0")

	client := &http.Client{Timeout: webpageFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}

	title, text = extract.HTMLDocument(io.LimitReader(resp.Body, webpageBodyLimit))
	return title, text, nil
}
