package repository

import "errors"

var (
	// ErrNotFound is returned when the requested group is not tracked.
	ErrNotFound = errors.New("group not found")

	// ErrInvalidLimit is returned when a non-positive limit is requested.
	ErrInvalidLimit = errors.New("limit must be positive")
)
