package handler

import (
	"context"
	"errors"
	iofs "io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	mfs "github.com/CageChen/dotwalk/internal/fs"
	"github.com/CageChen/dotwalk/internal/preview"
	"github.com/CageChen/dotwalk/internal/walk"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, walk.ErrInvalidInput),
		errors.Is(err, mfs.ErrNotDirectory),
		errors.Is(err, mfs.ErrIsDirectory):
		return http.StatusBadRequest
	case errors.Is(err, iofs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, iofs.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, preview.ErrBinary):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes a JSON error body. Not-found and forbidden errors get
// fixed messages so internal paths don't leak.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusForbidden:
		msg = "access denied"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// errHidden is returned for dot paths requested without showDot; they are
// indistinguishable from missing ones.
var errHidden = iofs.ErrNotExist
