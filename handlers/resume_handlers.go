package handlers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolio/api/apperr"
	"portfolio/api/middleware"
	"portfolio/api/models"
)

type ResumeHandlers struct {
	path string
}

func NewResumeHandlers(path string) *ResumeHandlers {
	return &ResumeHandlers{path: path}
}

func (h *ResumeHandlers) Download(c *gin.Context) {
	if h.path == "" {
		_ = c.Error(apperr.NotFound("Resume", ""))
		return
	}
	info, err := os.Stat(h.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		_ = c.Error(apperr.NotFound("Resume", h.path))
		return
	}
	if err != nil {
		_ = c.Error(apperr.Dependency("stat resume", err))
		return
	}
	c.FileAttachment(h.path, filepath.Base(h.path))
}

// ResumeMetadata describes a served resume download.
func ResumeMetadata(info middleware.ResponseInfo) models.Metadata {
	fields := map[string]any{"status": info.Status}
	if ct := info.Header.Get("Content-Type"); ct != "" {
		fields["contentType"] = ct
	}
	if n, err := strconv.ParseInt(info.Header.Get("Content-Length"), 10, 64); err == nil {
		fields["bytes"] = n
	}
	md, err := models.NewMetadata(fields)
	if err != nil {
		return models.Metadata{}
	}
	return md
}
