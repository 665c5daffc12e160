package intake

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrQueueFull  = errors.New("intake queue full")
	ErrClosed     = errors.New("intake closed")
	ErrBadMatchID = errors.New("bad match id")
)
