package walk

import (
	"context"
	"strings"

	mfs "github.com/CageChen/dotwalk/internal/fs"
)

// IsHidden reports whether a name is a dot-entry.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// HasHiddenSegment reports whether any segment of a slash-separated path is hidden.
func HasHiddenSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if IsHidden(seg) && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

// List filters a directory snapshot. With showDot it returns entries unchanged;
// otherwise it drops dot-entries and keeps the relative order of the rest.
func List(entries []mfs.DirEntry, showDot bool) []mfs.DirEntry {
	if showDot {
		return entries
	}
	kept := make([]mfs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if IsHidden(e.Name) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// ListDir reads the directory at path and filters it with List.
func ListDir(ctx context.Context, r mfs.DirectoryReader, path string, showDot bool) ([]mfs.DirEntry, error) {
	entries, err := readDir(ctx, r, path)
	if err != nil {
		return nil, err
	}
	return List(entries, showDot), nil
}

func readDir(ctx context.Context, r mfs.DirectoryReader, path string) ([]mfs.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := r.ReadDir(path)
	if err != nil {
		return nil, accessError(path, err)
	}
	return entries, nil
}
