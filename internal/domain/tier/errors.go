package tier

import "errors"

// Sentinel kinds for tier table errors.
var (
	ErrBadThresholds = errors.New("invalid tier thresholds")
	ErrOutOfRange    = errors.New("rank out of range")
)
