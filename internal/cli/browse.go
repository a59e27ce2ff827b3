package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	mfs "github.com/CageChen/dotwalk/internal/fs"
	"github.com/CageChen/dotwalk/internal/walk"
)

// openDir returns the filesystem for a local directory, or for a git ref of
// the repository at dir when ref is set.
func openDir(dir, ref string) mfs.FileSystem {
	if ref != "" {
		return mfs.NewGitFS(dir, ref)
	}
	return mfs.NewLocalFS(dir)
}

func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// options builds walk options from the loaded config. Skipped directories are
// logged at warn level.
func (a *app) options() walk.Options {
	opts := walk.Options{
		ShowDot:    a.cfg.ShowDot,
		Exclude:    a.cfg.Exclude,
		MaxResults: a.cfg.MaxResults,
		MaxDepth:   a.cfg.MaxDepth,
	}
	if a.cfg.SkipUnreadable {
		opts.OnError = func(p string, err error) error {
			a.log.Warn().Err(err).Str("path", p).Msg("skipping unreadable directory")
			return nil
		}
	}
	return opts
}

// newLsCmd creates the 'ls' command.
func newLsCmd(a *app) *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the entries of a directory",
		Long: `List the immediate entries of a directory, one per line.

Example:
  dotwalk ls ~/projects/site
  dotwalk ls --show-dot .
  dotwalk ls --ref v1.2.0 ~/projects/site`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := openDir(dirArg(args), ref)
			entries, err := walk.ListDir(cmd.Context(), fsys, "", a.cfg.ShowDot)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				prefix := "[FILE]"
				if e.IsDir {
					prefix = "[DIR]"
				}
				fmt.Fprintf(out, "%s %s\n", prefix, e.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Read from this git branch, tag or commit instead of the working tree")
	return cmd
}

// newFindCmd creates the 'find' command.
func newFindCmd(a *app) *cobra.Command {
	var (
		ref        string
		glob       bool
		ignoreCase bool
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "find <dir> <query>",
		Short: "Recursively find entries whose name matches a query",
		Long: `Walk a directory depth-first and print every entry whose name contains
the query. Dot-entries are skipped and never descended into unless --show-dot
is given.

Example:
  dotwalk find . config
  dotwalk find --glob . '*.md'
  dotwalk find --show-dot --ignore-case . readme`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, q := args[0], args[1]
			match, err := walk.Query(q, glob, ignoreCase)
			if err != nil {
				return err
			}

			a.log.Debug().Str("dir", dir).Str("query", q).Bool("showDot", a.cfg.ShowDot).Msg("searching")
			opts := a.options()
			if cmd.Flags().Changed("max-results") {
				opts.MaxResults = maxResults
			}
			found, truncated, err := walk.SearchCapped(cmd.Context(), openDir(dir, ref), "", match, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range found {
				fmt.Fprintln(out, filepath.Join(dir, filepath.FromSlash(p)))
			}
			if truncated {
				fmt.Fprintf(cmd.ErrOrStderr(), "showing the first %d matches; use --max-results 0 to see all\n", opts.MaxResults)
			}
			if len(found) == 0 {
				a.log.Info().Str("query", q).Msg("no matches found")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Read from this git branch, tag or commit instead of the working tree")
	cmd.Flags().BoolVar(&glob, "glob", false, "Treat the query as a glob pattern on entry names")
	cmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "Match the query case-insensitively")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Maximum matches to print (0 = unlimited, default from config)")
	return cmd
}

// newTreeCmd creates the 'tree' command.
func newTreeCmd(a *app) *cobra.Command {
	var (
		ref   string
		depth int
	)

	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the directory tree",
		Long: `Print the directory tree, directories first, indented two spaces per level.

Example:
  dotwalk tree --depth 2 .`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.options()
			if cmd.Flags().Changed("depth") {
				opts.MaxDepth = depth
			}

			root, err := walk.Tree(cmd.Context(), openDir(dirArg(args), ref), "", opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), root.Render())
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Read from this git branch, tag or commit instead of the working tree")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum depth below the directory (0 = unlimited)")
	return cmd
}
