package exams

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTest rejects a test that would break a persistence invariant.
	ErrInvalidTest = errors.New("invalid test")
)
