package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// BillyFS implements FileSystem on top of a go-billy filesystem.
type BillyFS struct {
	fs billy.Filesystem
}

// NewLocalFS creates a FileSystem rooted at the given directory on local disk.
// Paths that resolve outside the root (including through symlinks) are refused.
func NewLocalFS(root string) *BillyFS {
	return &BillyFS{fs: osfs.New(root, osfs.WithBoundOS())}
}

// NewMemFS creates an empty in-memory FileSystem.
func NewMemFS() *BillyFS {
	return &BillyFS{fs: memfs.New()}
}

// Billy exposes the underlying filesystem, mostly so tests can populate a MemFS.
func (b *BillyFS) Billy() billy.Filesystem {
	return b.fs
}

// billy backends are happiest with absolute, slash-rooted names.
func (b *BillyFS) abs(p string) string {
	return "/" + Clean(p)
}

// ReadFile reads the contents of the file at the given path relative to the root.
func (b *BillyFS) ReadFile(p string) ([]byte, error) {
	info, err := b.fs.Stat(b.abs(p))
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read %s: %w", p, ErrIsDirectory)
	}
	return util.ReadFile(b.fs, b.abs(p))
}

// Stat returns metadata for the file or directory at the given path relative to the root.
func (b *BillyFS) Stat(p string) (FileInfo, error) {
	info, err := b.fs.Stat(b.abs(p))
	if err != nil {
		return FileInfo{}, err
	}
	name := info.Name()
	if Clean(p) == "" {
		name = "/"
	}
	return FileInfo{
		Name:    name,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ReadDir lists the immediate children of the directory at the given path relative to the root.
func (b *BillyFS) ReadDir(p string) ([]DirEntry, error) {
	// memfs happily lists a directory that does not exist, so check first.
	info, err := b.fs.Stat(b.abs(p))
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: ErrNotDirectory}
	}

	infos, err := b.fs.ReadDir(b.abs(p))
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, len(infos))
	for i, fi := range infos {
		result[i] = DirEntry{
			Name:  fi.Name(),
			IsDir: fi.IsDir(),
		}
	}
	return result, nil
}

// Sentinel errors shared by all backends.
var (
	ErrNotDirectory = errors.New("not a directory")
	ErrIsDirectory  = errors.New("is a directory")
)

// IsNotExist reports whether err means the path does not exist in any backend.
func IsNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist)
}
