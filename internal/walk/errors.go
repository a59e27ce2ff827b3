package walk

import (
	"errors"
	"fmt"
	iofs "io/fs"
)

// ErrInvalidInput is returned for malformed predicates, empty queries and bad paths.
var ErrInvalidInput = errors.New("invalid input")

// AccessKind classifies why a directory could not be read.
type AccessKind int

// Access failure kinds.
const (
	KindUnreadable AccessKind = iota
	KindNotFound
	KindAccessDenied
)

func (k AccessKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAccessDenied:
		return "access denied"
	default:
		return "unreadable"
	}
}

// AccessError reports a directory read that failed.
type AccessError struct {
	Path string
	Kind AccessKind
	Err  error
}

func (e *AccessError) Error() string {
	path := e.Path
	if path == "" {
		path = "."
	}
	return fmt.Sprintf("read %s: %s: %v", path, e.Kind, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

func accessError(path string, err error) error {
	var ae *AccessError
	if errors.As(err, &ae) {
		return err
	}
	kind := KindUnreadable
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, iofs.ErrPermission):
		kind = KindAccessDenied
	}
	return &AccessError{Path: path, Kind: kind, Err: err}
}

// IsNotFound reports whether err is an AccessError of kind KindNotFound.
func IsNotFound(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae) && ae.Kind == KindNotFound
}

// IsAccessDenied reports whether err is an AccessError of kind KindAccessDenied.
func IsAccessDenied(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae) && ae.Kind == KindAccessDenied
}
