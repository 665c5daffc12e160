package model

import "errors"

// Sentinel kinds for outcome validation errors.
var (
	ErrInvalidOutcome = errors.New("invalid match outcome")
)
