package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write,
	// e.g. a second time entry for the same recurring entry and date.
	ErrDuplicate = errors.New("persistence: duplicate record")
)
