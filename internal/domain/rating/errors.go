package rating

import "errors"

// Sentinel kinds for rating computation errors.
var (
	ErrComputation      = errors.New("rating computation failed")
	ErrUnknownAlgorithm = errors.New("unknown rating algorithm")
)
