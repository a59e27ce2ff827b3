package walk

import (
	"fmt"
	"path"
	"strings"
)

// MatchPredicate decides whether an entry name is a search hit.
type MatchPredicate func(name string) bool

// Contains matches names containing sub.
func Contains(sub string) MatchPredicate {
	return func(name string) bool {
		return strings.Contains(name, sub)
	}
}

// ContainsFold matches names containing sub, ignoring case.
func ContainsFold(sub string) MatchPredicate {
	sub = strings.ToLower(sub)
	return func(name string) bool {
		return strings.Contains(strings.ToLower(name), sub)
	}
}

// AnyOf matches when at least one of preds matches.
func AnyOf(preds ...MatchPredicate) MatchPredicate {
	return func(name string) bool {
		for _, p := range preds {
			if p(name) {
				return true
			}
		}
		return false
	}
}

// Glob matches names against a path.Match pattern.
func Glob(pattern string) (MatchPredicate, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidInput)
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidInput, pattern, err)
	}
	return func(name string) bool {
		ok, _ := path.Match(pattern, name)
		return ok
	}, nil
}

// Query builds the predicate used by the CLI and HTTP search: a glob when glob
// is set, otherwise a substring test that optionally ignores case.
func Query(q string, glob, ignoreCase bool) (MatchPredicate, error) {
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if glob {
		if ignoreCase {
			g, err := Glob(strings.ToLower(q))
			if err != nil {
				return nil, err
			}
			return func(name string) bool { return g(strings.ToLower(name)) }, nil
		}
		return Glob(q)
	}
	if ignoreCase {
		return ContainsFold(q), nil
	}
	return Contains(q), nil
}
