package repository

import "errors"

var (
	// ErrNotFound is returned when a requested document doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic concurrency check fails at commit
	ErrConflict = errors.New("conflict: document was modified by another transaction")

	// ErrInvalidInput is returned when a document is missing its collection or id
	ErrInvalidInput = errors.New("invalid input")
)
