package fs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitFS implements FileSystem by reading from a git ref (branch, tag, or commit).
// The ref is resolved once, on first use; a GitFS is a snapshot of that commit.
type GitFS struct {
	repoPath string
	ref      string

	once    sync.Once
	root    *object.Tree
	modTime time.Time
	err     error
}

// NewGitFS creates a GitFS that reads files from the given ref in the repository at repoPath.
func NewGitFS(repoPath, ref string) *GitFS {
	return &GitFS{repoPath: repoPath, ref: ref}
}

func (g *GitFS) resolve() (*object.Tree, error) {
	g.once.Do(func() {
		repo, err := git.PlainOpenWithOptions(g.repoPath, &git.PlainOpenOptions{DetectDotGit: true})
		if err != nil {
			g.err = fmt.Errorf("open repository %s: %w", g.repoPath, err)
			return
		}
		hash, err := repo.ResolveRevision(plumbing.Revision(g.ref))
		if err != nil {
			g.err = fmt.Errorf("resolve ref %q: %w", g.ref, os.ErrNotExist)
			return
		}
		commit, err := repo.CommitObject(*hash)
		if err != nil {
			g.err = fmt.Errorf("load commit %s: %w", hash, err)
			return
		}
		tree, err := commit.Tree()
		if err != nil {
			g.err = fmt.Errorf("load tree %s: %w", commit.TreeHash, err)
			return
		}
		g.root = tree
		g.modTime = commit.Committer.When
	})
	return g.root, g.err
}

// ReadFile reads the contents of the file at the given path from the git ref.
func (g *GitFS) ReadFile(path string) ([]byte, error) {
	objPath := Clean(path)
	if objPath == "" {
		return nil, fmt.Errorf("read %s: %w", g.ref, ErrIsDirectory)
	}
	root, err := g.resolve()
	if err != nil {
		return nil, err
	}

	entry, err := root.FindEntry(objPath)
	if err != nil {
		return nil, notExist(err)
	}
	if entry.Mode == filemode.Dir {
		return nil, fmt.Errorf("read %s: %w", objPath, ErrIsDirectory)
	}

	file, err := root.File(objPath)
	if err != nil {
		return nil, notExist(err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", objPath, err)
	}
	return []byte(contents), nil
}

// Stat returns metadata for the file or directory at the given path in the git ref.
// Every entry reports the commit time as its modification time.
func (g *GitFS) Stat(path string) (FileInfo, error) {
	root, err := g.resolve()
	if err != nil {
		return FileInfo{}, err
	}

	objPath := Clean(path)
	if objPath == "" {
		return FileInfo{
			Name:    g.ref,
			IsDir:   true,
			ModTime: g.modTime,
		}, nil
	}

	entry, err := root.FindEntry(objPath)
	if err != nil {
		return FileInfo{}, notExist(err)
	}
	if entry.Mode == filemode.Dir {
		return FileInfo{
			Name:    entry.Name,
			IsDir:   true,
			ModTime: g.modTime,
		}, nil
	}

	size, err := root.Size(objPath)
	if err != nil {
		return FileInfo{}, notExist(err)
	}
	return FileInfo{
		Name:    entry.Name,
		Size:    size,
		ModTime: g.modTime,
	}, nil
}

// ReadDir lists the immediate children of the directory at the given path in the git ref,
// in tree order.
func (g *GitFS) ReadDir(path string) ([]DirEntry, error) {
	root, err := g.resolve()
	if err != nil {
		return nil, err
	}

	tree := root
	if objPath := Clean(path); objPath != "" {
		entry, err := root.FindEntry(objPath)
		if err != nil {
			return nil, notExist(err)
		}
		if entry.Mode != filemode.Dir {
			return nil, &os.PathError{Op: "readdir", Path: objPath, Err: ErrNotDirectory}
		}
		tree, err = root.Tree(objPath)
		if err != nil {
			return nil, notExist(err)
		}
	}

	entries := make([]DirEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		// Submodules show up as commit entries; there is nothing to read behind them.
		if e.Mode == filemode.Submodule {
			continue
		}
		entries = append(entries, DirEntry{
			Name:  e.Name,
			IsDir: e.Mode == filemode.Dir,
		})
	}
	return entries, nil
}

// notExist maps go-git lookup failures onto os.ErrNotExist so callers can use
// errors.Is uniformly across backends.
func notExist(err error) error {
	switch {
	case errors.Is(err, object.ErrEntryNotFound),
		errors.Is(err, object.ErrDirectoryNotFound),
		errors.Is(err, object.ErrFileNotFound):
		return fmt.Errorf("%s: %w", strings.TrimSpace(err.Error()), os.ErrNotExist)
	default:
		return err
	}
}
