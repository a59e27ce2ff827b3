package walk

import (
	"context"
	"errors"
	"fmt"
	"path"

	mfs "github.com/CageChen/dotwalk/internal/fs"
)

var errLimit = errors.New("result limit reached")

// Search walks the tree under root depth-first, pre-order, and returns the full
// path of every entry whose name satisfies match. A directory's own match comes
// before anything found inside it; non-matching directories are still descended.
//
// A failure reading root is always returned. Failures below root go through
// opts.OnError.
func Search(ctx context.Context, r mfs.DirectoryReader, root string, match MatchPredicate, opts Options) ([]string, error) {
	if match == nil {
		return nil, fmt.Errorf("%w: nil match predicate", ErrInvalidInput)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &searcher{r: r, match: match, opts: opts, results: []string{}}
	entries, err := readDir(ctx, r, root)
	if err != nil {
		return nil, err
	}
	if err := s.visit(ctx, root, entries); err != nil && !errors.Is(err, errLimit) {
		return nil, err
	}
	return s.results, nil
}

type searcher struct {
	r       mfs.DirectoryReader
	match   MatchPredicate
	opts    Options
	results []string
}

func (s *searcher) visit(ctx context.Context, dir string, entries []mfs.DirEntry) error {
	for _, e := range entries {
		if s.opts.skip(e.Name) {
			continue
		}

		full := path.Join(dir, e.Name)
		if s.match(e.Name) {
			s.results = append(s.results, full)
			if s.opts.MaxResults > 0 && len(s.results) >= s.opts.MaxResults {
				return errLimit
			}
		}

		if !e.IsDir {
			continue
		}
		children, err := readDir(ctx, s.r, full)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := s.opts.handle(full, err); err != nil {
				return err
			}
			continue
		}
		if err := s.visit(ctx, full, children); err != nil {
			return err
		}
	}
	return nil
}

// SearchCapped is Search with opts.MaxResults treated as a display cap. It
// looks for one match past the cap so truncated is only set when matches were
// actually dropped.
func SearchCapped(ctx context.Context, r mfs.DirectoryReader, root string, match MatchPredicate, opts Options) (results []string, truncated bool, err error) {
	limit := opts.MaxResults
	if limit > 0 {
		opts.MaxResults = limit + 1
	}
	results, err = Search(ctx, r, root, match, opts)
	if err != nil {
		return nil, false, err
	}
	if limit > 0 && len(results) > limit {
		return results[:limit], true, nil
	}
	return results, false, nil
}
