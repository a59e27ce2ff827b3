package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/dotwalk/internal/config"
	"github.com/CageChen/dotwalk/internal/walk"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

// newTestServer serves a project folder aliased "proj" containing dot entries.
func newTestServer(t *testing.T) (*gin.Engine, *config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		".git/config":              "[core]\n",
		".vscode/settings.json":    "{}",
		".env":                     "SECRET=1",
		"README.md":                "# Project\n\n## Usage\n",
		"docs/guide.md":            "# Guide\n",
		"src/config.js":            "module.exports = {}\n",
		"main.go":                  "package main\n\nfunc main() {}\n",
		"node_modules/x/config.js": "",
	})

	cfg := config.DefaultConfig()
	cfg.Folders = []config.Folder{{Path: dir, Alias: "proj"}}
	cfg.SetConfigFilePath(filepath.Join(t.TempDir(), "config.yaml"))

	r := NewRouter(cfg, NewWSHandler(false, zerolog.Nop()), zerolog.Nop())
	return r, cfg, dir
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type listBody struct {
	Path    string          `json:"path"`
	ShowDot bool            `json:"showDot"`
	Entries []EntryResponse `json:"entries"`
}

func entryNames(entries []EntryResponse) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestListHidesDotEntriesByDefault(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := get(t, r, "/api/list/proj")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[listBody](t, w)

	assert.False(t, body.ShowDot)
	assert.ElementsMatch(t, []string{"README.md", "docs", "main.go", "node_modules", "src"}, entryNames(body.Entries))
	for _, e := range body.Entries {
		assert.Equal(t, "proj/"+e.Name, e.Path)
	}
}

func TestListShowDot(t *testing.T) {
	r, _, _ := newTestServer(t)

	for _, q := range []string{"showDot=true", "showDotDirectories=1"} {
		w := get(t, r, "/api/list/proj?"+q)
		require.Equal(t, http.StatusOK, w.Code, q)
		body := decode[listBody](t, w)
		assert.True(t, body.ShowDot)
		assert.Subset(t, entryNames(body.Entries), []string{".git", ".vscode", ".env", "README.md"}, q)
	}
}

func TestListTypes(t *testing.T) {
	r, _, _ := newTestServer(t)

	body := decode[listBody](t, get(t, r, "/api/list/proj"))
	types := make(map[string]string)
	for _, e := range body.Entries {
		types[e.Name] = e.Type
	}
	assert.Equal(t, walk.TypeDirectory, types["docs"])
	assert.Equal(t, walk.TypeFile, types["README.md"])
}

func TestListRoots(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := get(t, r, "/api/list/")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[listBody](t, w)
	assert.Equal(t, []string{"proj"}, entryNames(body.Entries))
}

func TestListErrors(t *testing.T) {
	r, _, _ := newTestServer(t)

	tests := []struct {
		target string
		status int
	}{
		{"/api/list/unknown", http.StatusNotFound},
		{"/api/list/proj/missing", http.StatusNotFound},
		{"/api/list/proj/README.md", http.StatusBadRequest},
		{"/api/list/proj/.git", http.StatusNotFound},
		{"/api/list/proj?showDot=maybe", http.StatusBadRequest},
		{"/api/list/proj/docs/%2E%2E/%2E%2E", http.StatusForbidden},
		{"/api/list/proj/%2E%2E/proj", http.StatusForbidden},
		{"/api/list/%2E%2E", http.StatusForbidden},
	}
	for _, tt := range tests {
		w := get(t, r, tt.target)
		assert.Equal(t, tt.status, w.Code, tt.target)
	}

	w := get(t, r, "/api/list/proj/.git?showDot=true")
	assert.Equal(t, http.StatusOK, w.Code)
}

type searchBody struct {
	Results   []string `json:"results"`
	Truncated bool     `json:"truncated"`
}

func TestSearch(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := get(t, r, "/api/search/proj?q=config")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[searchBody](t, w)
	// node_modules is excluded by default, .git is hidden.
	assert.Equal(t, []string{"proj/src/config.js"}, body.Results)
	assert.False(t, body.Truncated)

	w = get(t, r, "/api/search/proj?q=config&showDot=true")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode[searchBody](t, w)
	assert.ElementsMatch(t, []string{"proj/.git/config", "proj/src/config.js"}, body.Results)
}

func TestSearchGlobAndCase(t *testing.T) {
	r, _, _ := newTestServer(t)

	body := decode[searchBody](t, get(t, r, "/api/search/proj?q="+url.QueryEscape("*.md")+"&glob=true"))
	assert.ElementsMatch(t, []string{"proj/README.md", "proj/docs/guide.md"}, body.Results)

	body = decode[searchBody](t, get(t, r, "/api/search/proj?q=readme"))
	assert.Empty(t, body.Results)

	body = decode[searchBody](t, get(t, r, "/api/search/proj?q=readme&ignoreCase=true"))
	assert.Equal(t, []string{"proj/README.md"}, body.Results)
}

func TestSearchSubdirectory(t *testing.T) {
	r, _, _ := newTestServer(t)

	body := decode[searchBody](t, get(t, r, "/api/search/proj/docs?q=guide"))
	assert.Equal(t, []string{"proj/docs/guide.md"}, body.Results)
}

func TestSearchInvalidInput(t *testing.T) {
	r, _, _ := newTestServer(t)

	for _, target := range []string{
		"/api/search/proj",
		"/api/search/proj?q=%5B&glob=true",
		"/api/search/proj?q=x&glob=nope",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, r, target).Code, target)
	}
}

func TestSearchTruncated(t *testing.T) {
	r, cfg, _ := newTestServer(t)
	cfg.MaxResults = 1

	body := decode[searchBody](t, get(t, r, "/api/search/proj?q=%2E"))
	assert.Len(t, body.Results, 1)
	assert.True(t, body.Truncated)

	// A result count equal to the cap is complete.
	body = decode[searchBody](t, get(t, r, "/api/search/proj?q=guide"))
	assert.Equal(t, []string{"proj/docs/guide.md"}, body.Results)
	assert.False(t, body.Truncated)
}

func TestDotAliasIsHidden(t *testing.T) {
	r, cfg, _ := newTestServer(t)
	dotfiles := t.TempDir()
	writeFiles(t, dotfiles, map[string]string{"config.js": "", "notes.md": "# Notes\n"})
	cfg.Folders = append(cfg.Folders, config.Folder{Path: dotfiles, Alias: ".dotfiles"})

	roots := decode[listBody](t, get(t, r, "/api/list/"))
	assert.Equal(t, []string{"proj"}, entryNames(roots.Entries))

	for _, target := range []string{
		"/api/list/.dotfiles",
		"/api/search/.dotfiles?q=config",
		"/api/tree/.dotfiles",
		"/api/info/.dotfiles/config.js",
		"/api/files/.dotfiles/notes.md",
		"/api/raw/.dotfiles/notes.md",
	} {
		assert.Equal(t, http.StatusNotFound, get(t, r, target).Code, target)

		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		assert.Equal(t, http.StatusOK, get(t, r, target+sep+"showDot=true").Code, target)
	}

	body := decode[searchBody](t, get(t, r, "/api/search/.dotfiles?q=config&showDot=true"))
	assert.Equal(t, []string{".dotfiles/config.js"}, body.Results)
}

func TestSearchSkipUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	r, cfg, dir := newTestServer(t)
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	w := get(t, r, "/api/search/proj?q=config")
	assert.Equal(t, http.StatusForbidden, w.Code)

	cfg.SkipUnreadable = true
	w = get(t, r, "/api/search/proj?q=config")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"proj/src/config.js"}, decode[searchBody](t, w).Results)
}

func TestTree(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := get(t, r, "/api/tree/proj")
	require.Equal(t, http.StatusOK, w.Code)
	root := decode[walk.Node](t, w)

	assert.Equal(t, "proj", root.Name)
	assert.Equal(t, "proj", root.Path)
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"docs", "src", "main.go", "README.md"}, names)
	assert.Equal(t, "proj/docs/guide.md", root.Children[0].Children[0].Path)
}

func TestTreeDepthAndShowDot(t *testing.T) {
	r, _, _ := newTestServer(t)

	root := decode[walk.Node](t, get(t, r, "/api/tree/proj?depth=1&showDot=true"))
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
		assert.Empty(t, c.Children, c.Name)
	}
	assert.Equal(t, []string{".git", ".vscode", "docs", "src", ".env", "main.go", "README.md"}, names)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/tree/proj?depth=-1").Code)
}

func TestInfo(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := get(t, r, "/api/info/proj/README.md")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[InfoResponse](t, w)
	assert.Equal(t, "README.md", info.Name)
	assert.Equal(t, "proj/README.md", info.Path)
	assert.Equal(t, walk.TypeFile, info.Type)
	assert.EqualValues(t, len("# Project\n\n## Usage\n"), info.Size)

	info = decode[InfoResponse](t, get(t, r, "/api/info/proj"))
	assert.Equal(t, "proj", info.Name)
	assert.Equal(t, walk.TypeDirectory, info.Type)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/info/proj/.env").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/api/info/proj/.env?showDot=true").Code)
}

func TestGetFile(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := get(t, r, "/api/files/proj/README.md")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Path  string `json:"path"`
		Kind  string `json:"kind"`
		Title string `json:"title"`
		HTML  string `json:"html"`
		TOC   []struct {
			Title string `json:"title"`
		} `json:"toc"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "proj/README.md", body.Path)
	assert.Equal(t, "markdown", body.Kind)
	assert.Equal(t, "Project", body.Title)
	assert.Contains(t, body.HTML, "<h1")
	require.Len(t, body.TOC, 2)

	w = get(t, r, "/api/files/proj/main.go")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"code"`)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/files/proj/docs").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/files/proj/.git/config").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/api/files/proj/.git/config?showDot=true").Code)
}

func TestGetFileBinary(t *testing.T) {
	r, _, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{0x7f, 'E', 0, 1}, 0644))

	assert.Equal(t, http.StatusUnsupportedMediaType, get(t, r, "/api/files/proj/blob.bin").Code)
}

func TestGetRaw(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := get(t, r, "/api/raw/proj/README.md")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# Project\n\n## Usage\n", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown"))

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/raw/proj/.env").Code)
}

func TestRoots(t *testing.T) {
	r, cfg, _ := newTestServer(t)
	extra := t.TempDir()
	writeFiles(t, extra, map[string]string{"notes.md": "# Notes\n"})

	body := `{"path":` + jsonString(extra) + `,"alias":"notes"}`
	req := httptest.NewRequest(http.MethodPost, "/api/roots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, ok := cfg.FolderByAlias("notes")
	assert.True(t, ok)
	_, err := os.Stat(cfg.GetConfigFilePath())
	assert.NoError(t, err, "config saved")

	lb := decode[listBody](t, get(t, r, "/api/list/notes"))
	assert.Equal(t, []string{"notes.md"}, entryNames(lb.Entries))

	// Same alias for a different path conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/roots", strings.NewReader(`{"path":`+jsonString(t.TempDir())+`,"alias":"notes"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/roots?alias=notes", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/list/notes").Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/roots?alias=notes", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddRootValidation(t *testing.T) {
	r, _, dir := newTestServer(t)

	for _, body := range []string{
		`{}`,
		`{"path":"/definitely/not/here"}`,
		`{"path":` + jsonString(filepath.Join(dir, "README.md")) + `}`,
		`{"path":` + jsonString(dir) + `,"git_ref":"main"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/roots", strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in, alias, rel string
		wantErr        bool
	}{
		{"/", "", "", false},
		{"/proj", "proj", "", false},
		{"/proj/", "proj", "", false},
		{"/proj/docs/a.md", "proj", "docs/a.md", false},
		{"/proj/./docs//a.md", "proj", "docs/a.md", false},
		{"/proj/../etc", "", "", true},
		{"/proj/a/..", "", "", true},
	}
	for _, tt := range tests {
		alias, rel, err := splitPath(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.alias, alias, tt.in)
		assert.Equal(t, tt.rel, rel, tt.in)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
