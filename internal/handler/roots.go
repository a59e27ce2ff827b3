// Package handler provides HTTP handlers for the dotwalk REST API.
package handler

import (
	"fmt"
	iofs "io/fs"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/CageChen/dotwalk/internal/config"
	mfs "github.com/CageChen/dotwalk/internal/fs"
)

var errInvalidPath = fmt.Errorf("invalid path: %w", iofs.ErrPermission)

// Roots guards the configured folders and resolves API paths against them.
// API paths have the form {alias}/{relativePath}, e.g. "dotwalk/docs/README.md".
type Roots struct {
	cfg *config.Config
	mu  sync.RWMutex
}

// NewRoots wraps cfg. Handlers must go through Roots to read or change folders.
func NewRoots(cfg *config.Config) *Roots {
	return &Roots{cfg: cfg}
}

// target is a resolved API path.
type target struct {
	fs     mfs.FileSystem
	folder config.Folder
	rel    string
}

// fsForFolder returns the appropriate FileSystem for a folder config.
func fsForFolder(folder config.Folder) mfs.FileSystem {
	if folder.GitRef != "" {
		return mfs.NewGitFS(folder.Path, folder.GitRef)
	}
	return mfs.NewLocalFS(folder.Path)
}

// splitPath separates the alias from the folder-relative path and rejects
// parent-directory segments.
func splitPath(p string) (alias, rel string, err error) {
	p = strings.Trim(p, "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", "", errInvalidPath
		}
	}
	parts := strings.SplitN(p, "/", 2)
	alias = parts[0]
	if len(parts) > 1 {
		rel = mfs.Clean(parts[1])
	}
	return alias, rel, nil
}

// Resolve maps an API path to a filesystem and a folder-relative path. The
// alias must be non-empty.
func (r *Roots) Resolve(p string) (*target, error) {
	alias, rel, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	if alias == "" {
		return nil, fmt.Errorf("folder alias required: %w", os.ErrNotExist)
	}

	r.mu.RLock()
	folder, ok := r.cfg.FolderByAlias(alias)
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown folder %q: %w", alias, os.ErrNotExist)
	}

	return &target{fs: fsForFolder(folder), folder: folder, rel: rel}, nil
}

// Folders returns a copy of the configured folders.
func (r *Roots) Folders() []config.Folder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]config.Folder(nil), r.cfg.Folders...)
}

// RootsHandler manages the configured folders.
type RootsHandler struct {
	roots *Roots
	log   zerolog.Logger
}

// NewRootsHandler creates a new folder management handler
func NewRootsHandler(roots *Roots, log zerolog.Logger) *RootsHandler {
	return &RootsHandler{roots: roots, log: log}
}

// GetRoots returns the configured folders and global excludes
func (h *RootsHandler) GetRoots(c *gin.Context) {
	h.roots.mu.RLock()
	defer h.roots.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{
		"folders":       h.roots.cfg.Folders,
		"globalExclude": h.roots.cfg.Exclude,
		"showDot":       h.roots.cfg.ShowDot,
	})
}

// AddRootRequest represents a request to add a folder
type AddRootRequest struct {
	Path    string   `json:"path" binding:"required"`
	Alias   string   `json:"alias"`
	GitRef  string   `json:"git_ref"`
	Exclude []string `json:"exclude"`
}

// AddRoot adds a new folder to the configuration
func (h *RootsHandler) AddRoot(c *gin.Context) {
	var req AddRootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	// Validate path exists (it must be a directory on disk even for git_ref folders)
	info, err := os.Stat(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path does not exist: " + req.Path})
		return
	}
	if !info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is not a directory"})
		return
	}
	if req.GitRef != "" {
		if _, err := mfs.NewGitFS(req.Path, req.GitRef).Stat(""); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read git ref: " + err.Error()})
			return
		}
	}

	h.roots.mu.Lock()
	defer h.roots.mu.Unlock()

	folder, err := h.roots.cfg.AddFolder(req.Path, req.Alias, req.GitRef, req.Exclude)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err := h.roots.cfg.Save(); err != nil {
		h.log.Error().Err(err).Msg("save config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config: " + err.Error()})
		return
	}

	h.log.Info().Str("alias", folder.Alias).Str("path", folder.Path).Str("ref", folder.GitRef).Msg("folder added")
	c.JSON(http.StatusOK, gin.H{
		"message": "folder added",
		"folder":  folder,
		"folders": h.roots.cfg.Folders,
	})
}

// RemoveRoot removes a folder by alias (?alias=...)
func (h *RootsHandler) RemoveRoot(c *gin.Context) {
	alias := c.Query("alias")
	if alias == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alias is required"})
		return
	}

	h.roots.mu.Lock()
	defer h.roots.mu.Unlock()

	if !h.roots.cfg.RemoveFolder(alias) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown folder"})
		return
	}
	if err := h.roots.cfg.Save(); err != nil {
		h.log.Error().Err(err).Msg("save config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config: " + err.Error()})
		return
	}

	h.log.Info().Str("alias", alias).Msg("folder removed")
	c.JSON(http.StatusOK, gin.H{
		"message": "folder removed",
		"folders": h.roots.cfg.Folders,
	})
}
