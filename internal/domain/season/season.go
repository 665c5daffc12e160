// Package season maps instants and ordinals to configured season boundaries.
//
// The calendar is pure: it is built once from configuration and only does
// arithmetic over its boundaries afterwards.
package season

import (
	"fmt"
	"sort"
	"time"
)

// Season is an immutable ladder period.
type Season struct {
	Nth    int
	Starts time.Time
	Ends   time.Time
}

// Contains reports whether t falls inside the season interval.
// The start is inclusive, the end exclusive.
func (s Season) Contains(t time.Time) bool {
	return !t.Before(s.Starts) && t.Before(s.Ends)
}

// Finished reports whether the season ended at or before t.
func (s Season) Finished(t time.Time) bool {
	return !t.Before(s.Ends)
}

// Calendar answers point-in-time and ordinal season lookups.
type Calendar struct {
	seasons []Season // ascending by Starts
	byNth   map[int]Season
}

// NewCalendar validates and indexes the configured seasons.
// Seasons must have positive length, strictly increasing ordinals, and
// must not overlap. Gaps between seasons are allowed: "between seasons"
// is a valid ladder state.
func NewCalendar(seasons []Season) (*Calendar, error) {
	ss := make([]Season, len(seasons))
	copy(ss, seasons)
	sort.Slice(ss, func(i, j int) bool { return ss[i].Starts.Before(ss[j].Starts) })

	byNth := make(map[int]Season, len(ss))
	for i, s := range ss {
		if !s.Starts.Before(s.Ends) {
			return nil, fmt.Errorf("%w: season %d ends before it starts", ErrBadCalendar, s.Nth)
		}
		if _, dup := byNth[s.Nth]; dup {
			return nil, fmt.Errorf("%w: duplicate season ordinal %d", ErrBadCalendar, s.Nth)
		}
		if i > 0 {
			prev := ss[i-1]
			if s.Starts.Before(prev.Ends) {
				return nil, fmt.Errorf("%w: seasons %d and %d overlap", ErrBadCalendar, prev.Nth, s.Nth)
			}
			if s.Nth <= prev.Nth {
				return nil, fmt.Errorf("%w: season ordinals not increasing (%d after %d)", ErrBadCalendar, s.Nth, prev.Nth)
			}
		}
		byNth[s.Nth] = s
	}

	return &Calendar{seasons: ss, byNth: byNth}, nil
}

// SeasonContaining returns the season whose interval contains t.
func (c *Calendar) SeasonContaining(t time.Time) (Season, bool) {
	i := sort.Search(len(c.seasons), func(i int) bool { return c.seasons[i].Ends.After(t) })
	if i < len(c.seasons) && c.seasons[i].Contains(t) {
		return c.seasons[i], true
	}
	return Season{}, false
}

// ByNth returns the season with the given ordinal.
func (c *Calendar) ByNth(n int) (Season, error) {
	s, ok := c.byNth[n]
	if !ok {
		return Season{}, fmt.Errorf("%w: season %d", ErrNotFound, n)
	}
	return s, nil
}

// Current is SeasonContaining under its ladder-facing name.
func (c *Calendar) Current(t time.Time) (Season, bool) {
	return c.SeasonContaining(t)
}

// Previous returns the most recent season that finished at or before t.
// Inside season k this is season k-1 by time; between seasons it is the
// one that just ended.
func (c *Calendar) Previous(t time.Time) (Season, bool) {
	i := sort.Search(len(c.seasons), func(i int) bool { return c.seasons[i].Ends.After(t) })
	if i == 0 {
		return Season{}, false
	}
	return c.seasons[i-1], true
}

// Next returns the earliest season starting strictly after t.
func (c *Calendar) Next(t time.Time) (Season, bool) {
	i := sort.Search(len(c.seasons), func(i int) bool { return c.seasons[i].Starts.After(t) })
	if i == len(c.seasons) {
		return Season{}, false
	}
	return c.seasons[i], true
}

// AllFinished returns every season whose end precedes or equals t,
// earliest first. The returned slice is a copy.
func (c *Calendar) AllFinished(t time.Time) []Season {
	i := sort.Search(len(c.seasons), func(i int) bool { return c.seasons[i].Ends.After(t) })
	out := make([]Season, i)
	copy(out, c.seasons[:i])
	return out
}

// Seasons returns every configured season in start order.
func (c *Calendar) Seasons() []Season {
	return append([]Season(nil), c.seasons...)
}

// Len returns the number of configured seasons.
func (c *Calendar) Len() int { return len(c.seasons) }
