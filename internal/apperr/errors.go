// Package apperr holds the sentinel errors shared across Albumen packages.
// Callers wrap them with fmt.Errorf("...: %w") and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrCatalogLoad marks a missing or malformed catalog resource. It is
	// recoverable: callers present an empty catalog instead.
	ErrCatalogLoad = errors.New("catalog load failed")

	// ErrRemoteRead marks a failed listing or filtered read against the
	// remote record store.
	ErrRemoteRead = errors.New("remote read failed")

	// ErrRemoteWrite marks a failed submission to the remote record store.
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrValidation marks missing or invalid user input, caught before any
	// network call.
	ErrValidation = errors.New("validation failed")

	ErrSelectionFull = errors.New("selection limit reached")
)
