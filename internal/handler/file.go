package handler

import (
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/CageChen/dotwalk/internal/config"
	"github.com/CageChen/dotwalk/internal/preview"
)

// FileResponse represents the response for a file request
type FileResponse struct {
	Path    string    `json:"path"`
	Folder  string    `json:"folder"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	*preview.Preview
}

// FileHandler handles file content API requests
type FileHandler struct {
	roots    *Roots
	cfg      *config.Config
	renderer *preview.Renderer
	log      zerolog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(roots *Roots, cfg *config.Config, log zerolog.Logger) *FileHandler {
	return &FileHandler{
		roots:    roots,
		cfg:      cfg,
		renderer: preview.NewRenderer(cfg.IsMarkdownFile),
		log:      log,
	}
}

// GetFile returns a rendered preview of a file
func (h *FileHandler) GetFile(c *gin.Context) {
	t, _, err := resolveRequest(c, h.roots, h.cfg.ShowDot)
	if err != nil {
		abortWithError(c, err)
		return
	}

	info, err := t.fs.Stat(t.rel)
	if err != nil {
		abortWithError(c, err)
		return
	}
	content, err := t.fs.ReadFile(t.rel)
	if err != nil {
		abortWithError(c, err)
		return
	}

	p, err := h.renderer.Render(info.Name, content)
	if err != nil {
		h.log.Debug().Err(err).Str("path", t.rel).Msg("preview failed")
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, FileResponse{
		Path:    path.Join(t.folder.Alias, t.rel),
		Folder:  t.folder.Alias,
		Size:    info.Size,
		ModTime: info.ModTime,
		Preview: p,
	})
}

// GetRaw returns the file content unchanged
func (h *FileHandler) GetRaw(c *gin.Context) {
	t, _, err := resolveRequest(c, h.roots, h.cfg.ShowDot)
	if err != nil {
		abortWithError(c, err)
		return
	}

	content, err := t.fs.ReadFile(t.rel)
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(t.rel))
	switch {
	case h.cfg.IsMarkdownFile(t.rel):
		ctype = "text/markdown; charset=utf-8"
	case ctype == "":
		ctype = http.DetectContentType(content)
	}
	c.Data(http.StatusOK, ctype, content)
}
