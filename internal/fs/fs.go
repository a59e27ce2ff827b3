// Package fs provides filesystem abstractions for reading directories and files from
// local disk, an in-memory tree, or a git ref.
package fs

import (
	"path"
	"strings"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry represents a single directory entry.
type DirEntry struct {
	Name  string
	IsDir bool
}

// DirectoryReader reads the immediate entries of a directory. Entries come back in
// whatever order the backend produces them.
type DirectoryReader interface {
	ReadDir(path string) ([]DirEntry, error)
}

// FileSystem abstracts file operations so callers can work with the local
// filesystem, an in-memory tree, or a git object database.
//
// Paths are slash-separated and relative to the filesystem root; "" and "."
// both name the root.
type FileSystem interface {
	DirectoryReader
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
}

// Clean normalizes a relative path. The root is returned as "".
func Clean(p string) string {
	p = path.Clean("/" + strings.TrimPrefix(p, "/"))
	return strings.TrimPrefix(p, "/")
}
