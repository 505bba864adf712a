package handler

import (
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"io"
	"media-registry/config"
	"media-registry/constant"
	"media-registry/dto"
	"media-registry/entities"
	"media-registry/service"
	"media-registry/storage"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type RecordingHandler struct {
	registry    service.Registry
	blobs       storage.BlobStore
	app         config.App
	maxUploadMB int64
}

func NewRecordingHandler(registry service.Registry, blobs storage.BlobStore, app config.App, maxUploadMB int64) *RecordingHandler {
	return &RecordingHandler{
		registry:    registry,
		blobs:       blobs,
		app:         app,
		maxUploadMB: maxUploadMB,
	}
}

func (h *RecordingHandler) Register(r gin.IRouter) {
	api := r.Group("/api/recordings")
	api.POST("", h.Create)
	api.GET("", h.List)
	api.GET("/audit", h.Audit)
	api.GET("/:id", h.Get)
	api.DELETE("/:id", h.Delete)

	r.GET(constant.UploadsPrefix+":key", h.ServeBlob)
	r.HEAD(constant.UploadsPrefix+":key", h.ServeBlob)
}

func (h *RecordingHandler) Create(c *gin.Context) {
	if h.maxUploadMB > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadMB<<20)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: fmt.Sprintf("File too large (max %d MB)", h.maxUploadMB)})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "No file uploaded"})
		return
	}
	if fileHeader.Size <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "No file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Upload failed"})
		return
	}
	defer file.Close()

	rec, err := h.registry.Create(c.Request.Context(), service.Upload{
		Body:         file,
		OriginalName: fileHeader.Filename,
		Size:         fileHeader.Size,
		Title:        c.PostForm("title"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.present(c, rec))
}

func (h *RecordingHandler) List(c *gin.Context) {
	recs, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]entities.Recording, 0, len(recs))
	for _, rec := range recs {
		out = append(out, h.present(c, rec))
	}
	c.JSON(http.StatusOK, out)
}

func (h *RecordingHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present(c, rec))
}

func (h *RecordingHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.registry.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := dto.DeleteResponse{Ok: true}
	if res.BlobErr != nil {
		resp.Warning = "recording removed but its file could not be deleted"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordingHandler) Audit(c *gin.Context) {
	report, err := h.registry.Audit(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := dto.AuditReport{
		Checked:  report.Checked,
		Dangling: make([]*entities.Recording, 0, len(report.Dangling)),
	}
	for _, rec := range report.Dangling {
		abs := h.present(c, rec)
		out.Dangling = append(out.Dangling, &abs)
	}
	c.JSON(http.StatusOK, out)
}

func (h *RecordingHandler) ServeBlob(c *gin.Context) {
	key := c.Param("key")
	rc, err := h.blobs.Get(c.Request.Context(), key)
	if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("storage_key", key).Msg("failed to open blob")
		c.Status(http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	// Local files support range requests; remote streams are copied through.
	if rs, ok := rc.(io.ReadSeeker); ok {
		c.Header("Content-Type", storage.ContentType(key))
		http.ServeContent(c.Writer, c.Request, key, time.Time{}, rs)
		return
	}
	c.DataFromReader(http.StatusOK, -1, storage.ContentType(key), rc, nil)
}

// present rewrites the stored relative locator to an absolute URL for clients.
func (h *RecordingHandler) present(c *gin.Context, rec *entities.Recording) entities.Recording {
	out := *rec
	out.URL = h.baseURL(c) + rec.URL
	return out
}

func (h *RecordingHandler) baseURL(c *gin.Context) string {
	scheme := h.app.Protocol
	if scheme == "" {
		scheme = "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
	}
	host := h.app.Host
	if host == "" {
		host = c.Request.Host
	}
	return scheme + "://" + host
}

func (h *RecordingHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "No file uploaded"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("recording request failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid id"})
		return 0, false
	}
	return id, true
}
