package walk

import (
	"context"
	"path"
	"sort"
	"strings"

	mfs "github.com/CageChen/dotwalk/internal/fs"
)

// Node types.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// Node represents a file or directory in a tree.
type Node struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Path     string  `json:"path"`
	Children []*Node `json:"children,omitempty"`
}

// Tree builds the directory tree under root. Children are sorted directories
// first, then case-insensitively by name; dot and exclude rules match Search.
func Tree(ctx context.Context, r mfs.DirectoryReader, root string, opts Options) (*Node, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	entries, err := readDir(ctx, r, root)
	if err != nil {
		return nil, err
	}

	name := path.Base(root)
	if root == "" || root == "." {
		name = "."
	}
	node := &Node{Name: name, Type: TypeDirectory, Path: root}
	if err := buildTree(ctx, r, node, entries, 1, opts); err != nil {
		return nil, err
	}
	return node, nil
}

func buildTree(ctx context.Context, r mfs.DirectoryReader, node *Node, entries []mfs.DirEntry, depth int, opts Options) error {
	// Sort: directories first, then files, both alphabetically
	sorted := make([]mfs.DirEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsDir != sorted[j].IsDir {
			return sorted[i].IsDir
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	node.Children = make([]*Node, 0, len(sorted))
	for _, e := range sorted {
		if opts.skip(e.Name) {
			continue
		}
		child := &Node{Name: e.Name, Type: TypeFile, Path: path.Join(node.Path, e.Name)}
		node.Children = append(node.Children, child)
		if !e.IsDir {
			continue
		}

		child.Type = TypeDirectory
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			continue
		}
		grand, err := readDir(ctx, r, child.Path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := opts.handle(child.Path, err); err != nil {
				return err
			}
			continue
		}
		if err := buildTree(ctx, r, child, grand, depth+1, opts); err != nil {
			return err
		}
	}
	return nil
}

// Render writes the tree as indented text, one entry per line, directories
// suffixed with "/".
func (n *Node) Render() string {
	var sb strings.Builder
	n.render(&sb, 0)
	return sb.String()
}

func (n *Node) render(sb *strings.Builder, indent int) {
	for _, c := range n.Children {
		sb.WriteString(strings.Repeat("  ", indent))
		sb.WriteString(c.Name)
		if c.Type == TypeDirectory {
			sb.WriteString("/")
		}
		sb.WriteByte('\n')
		c.render(sb, indent+1)
	}
}
