package handler

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/CageChen/dotwalk/internal/config"
	mfs "github.com/CageChen/dotwalk/internal/fs"
	"github.com/CageChen/dotwalk/internal/walk"
)

// EntryResponse is one entry of a directory listing.
type EntryResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// InfoResponse describes a single file or directory.
type InfoResponse struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Type    string    `json:"type"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// BrowseHandler serves listing, search, tree and info requests.
type BrowseHandler struct {
	roots *Roots
	cfg   *config.Config
	log   zerolog.Logger
}

// NewBrowseHandler creates a new browse handler
func NewBrowseHandler(roots *Roots, cfg *config.Config, log zerolog.Logger) *BrowseHandler {
	return &BrowseHandler{roots: roots, cfg: cfg, log: log}
}

// showDot reads the showDot query flag (showDotDirectories is accepted as an
// alias), falling back to the configured default.
func showDot(c *gin.Context, def bool) (bool, error) {
	raw, ok := c.GetQuery("showDot")
	if !ok {
		raw, ok = c.GetQuery("showDotDirectories")
	}
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: showDot=%q", walk.ErrInvalidInput, raw)
	}
	return v, nil
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", walk.ErrInvalidInput, name, raw)
	}
	return v, nil
}

// resolveRequest resolves the path parameter and the showDot flag. A hidden
// path is reported as missing unless showDot is set.
func resolveRequest(c *gin.Context, roots *Roots, def bool) (*target, bool, error) {
	show, err := showDot(c, def)
	if err != nil {
		return nil, false, err
	}
	t, err := roots.Resolve(c.Param("path"))
	if err != nil {
		return nil, false, err
	}
	if full := path.Join(t.folder.Alias, t.rel); !show && walk.HasHiddenSegment(full) {
		return nil, false, fmt.Errorf("hidden path %q: %w", full, errHidden)
	}
	return t, show, nil
}

func (h *BrowseHandler) options(t *target, show bool) walk.Options {
	opts := walk.Options{
		ShowDot:    show,
		Exclude:    h.cfg.ExcludesFor(t.folder),
		MaxResults: h.cfg.MaxResults,
		MaxDepth:   h.cfg.MaxDepth,
	}
	if h.cfg.SkipUnreadable {
		alias := t.folder.Alias
		opts.OnError = func(p string, err error) error {
			h.log.Warn().Err(err).Str("folder", alias).Str("path", p).Msg("skipping unreadable directory")
			return nil
		}
	}
	return opts
}

func entryType(isDir bool) string {
	if isDir {
		return walk.TypeDirectory
	}
	return walk.TypeFile
}

// List returns the immediate entries of a directory. With no alias it lists the
// configured folders.
func (h *BrowseHandler) List(c *gin.Context) {
	alias, _, err := splitPath(c.Param("path"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if alias == "" {
		h.listRoots(c)
		return
	}

	t, show, err := resolveRequest(c, h.roots, h.cfg.ShowDot)
	if err != nil {
		abortWithError(c, err)
		return
	}

	entries, err := walk.ListDir(c.Request.Context(), t.fs, t.rel, show)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]EntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = EntryResponse{
			Name: e.Name,
			Type: entryType(e.IsDir),
			Path: path.Join(t.folder.Alias, t.rel, e.Name),
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"path":    path.Join(t.folder.Alias, t.rel),
		"showDot": show,
		"entries": resp,
	})
}

func (h *BrowseHandler) listRoots(c *gin.Context) {
	show, err := showDot(c, h.cfg.ShowDot)
	if err != nil {
		abortWithError(c, err)
		return
	}

	folders := h.roots.Folders()
	entries := make([]mfs.DirEntry, len(folders))
	for i, f := range folders {
		entries[i] = mfs.DirEntry{Name: f.Alias, IsDir: true}
	}
	entries = walk.List(entries, show)

	resp := make([]EntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = EntryResponse{Name: e.Name, Type: walk.TypeDirectory, Path: e.Name}
	}
	c.JSON(http.StatusOK, gin.H{
		"path":    "",
		"showDot": show,
		"entries": resp,
	})
}

// Search finds entries under a directory whose name matches q. Query params:
// q (required), glob, ignoreCase, showDot.
func (h *BrowseHandler) Search(c *gin.Context) {
	t, show, err := resolveRequest(c, h.roots, h.cfg.ShowDot)
	if err != nil {
		abortWithError(c, err)
		return
	}
	glob, err := boolQuery(c, "glob")
	if err != nil {
		abortWithError(c, err)
		return
	}
	ignoreCase, err := boolQuery(c, "ignoreCase")
	if err != nil {
		abortWithError(c, err)
		return
	}
	match, err := walk.Query(c.Query("q"), glob, ignoreCase)
	if err != nil {
		abortWithError(c, err)
		return
	}

	opts := h.options(t, show)
	found, truncated, err := walk.SearchCapped(c.Request.Context(), t.fs, t.rel, match, opts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	results := make([]string, len(found))
	for i, p := range found {
		results[i] = path.Join(t.folder.Alias, p)
	}
	c.JSON(http.StatusOK, gin.H{
		"path":      path.Join(t.folder.Alias, t.rel),
		"query":     c.Query("q"),
		"showDot":   show,
		"results":   results,
		"truncated": truncated,
	})
}

// Tree returns the directory tree under a path. Query params: showDot, depth.
func (h *BrowseHandler) Tree(c *gin.Context) {
	t, show, err := resolveRequest(c, h.roots, h.cfg.ShowDot)
	if err != nil {
		abortWithError(c, err)
		return
	}

	opts := h.options(t, show)
	if raw := c.Query("depth"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth < 0 {
			abortWithError(c, fmt.Errorf("%w: depth=%q", walk.ErrInvalidInput, raw))
			return
		}
		opts.MaxDepth = depth
	}

	root, err := walk.Tree(c.Request.Context(), t.fs, t.rel, opts)
	if err != nil {
		abortWithError(c, err)
		return
	}
	prefixPaths(root, t.folder.Alias)
	if t.rel == "" {
		root.Name = t.folder.Alias
	}
	c.JSON(http.StatusOK, root)
}

// prefixPaths rewrites folder-relative node paths into API paths.
func prefixPaths(n *walk.Node, alias string) {
	n.Path = path.Join(alias, n.Path)
	for _, c := range n.Children {
		prefixPaths(c, alias)
	}
}

// Info returns metadata for a file or directory.
func (h *BrowseHandler) Info(c *gin.Context) {
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
	name := info.Name
	if t.rel == "" {
		name = t.folder.Alias
	}
	c.JSON(http.StatusOK, InfoResponse{
		Name:    name,
		Path:    path.Join(t.folder.Alias, t.rel),
		Type:    entryType(info.IsDir),
		Size:    info.Size,
		ModTime: info.ModTime,
	})
}
