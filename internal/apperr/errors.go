// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrPageNotFound       = errors.New("page not found")
	ErrLastPage           = errors.New("cannot delete the last page")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrInvalidInput       = errors.New("invalid input")
)
