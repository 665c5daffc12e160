package season

import "errors"

// Sentinel kinds for calendar errors.
var (
	ErrNotFound    = errors.New("season not found")
	ErrBadCalendar = errors.New("invalid season calendar")
)
