package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already recorded")
	ErrInvalidLimit = errors.New("invalid page limit")
)
