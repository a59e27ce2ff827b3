package walk

import (
	"fmt"
	"path"
)

// Options configures Search and Tree.
type Options struct {
	// ShowDot includes dot-entries. Default false.
	ShowDot bool

	// Exclude holds path.Match patterns tested against entry names. A matching
	// entry is skipped and never descended into, like a dot-entry.
	Exclude []string

	// MaxResults caps Search results; 0 means unlimited.
	MaxResults int

	// MaxDepth limits Tree depth below the root; 0 means unlimited.
	MaxDepth int

	// OnError is called when a directory below the root cannot be read. Returning
	// nil skips that directory and continues; returning an error aborts the walk.
	// When nil, the read error aborts the walk.
	OnError func(path string, err error) error
}

// Validate checks the exclude patterns.
func (o Options) Validate() error {
	for _, p := range o.Exclude {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("%w: exclude pattern %q: %v", ErrInvalidInput, p, err)
		}
	}
	if o.MaxResults < 0 || o.MaxDepth < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidInput)
	}
	return nil
}

// skip reports whether name is filtered out entirely.
func (o Options) skip(name string) bool {
	if !o.ShowDot && IsHidden(name) {
		return true
	}
	for _, p := range o.Exclude {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (o Options) handle(p string, err error) error {
	if o.OnError == nil {
		return err
	}
	return o.OnError(p, err)
}
