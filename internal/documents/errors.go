package documents

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrForbidden is returned when a document belongs to another user.
	ErrForbidden = errors.New("document belongs to another user")
	// ErrInvalidInput is returned for rejected uploads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("document too large")
)
