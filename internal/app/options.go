package app

import (
	"time"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/rating"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/tier"
	"github.com/sendou-ink/sendou.ink-sub007/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRatingFunc swaps the rating algorithm.
func WithRatingFunc(fn rating.Func) Option {
	return func(e *Engine) {
		if fn != nil {
			e.fn = fn
		}
	}
}

// WithTierList replaces the tier table.
func WithTierList(l *tier.List) Option {
	return func(e *Engine) {
		if l != nil {
			e.tiers = l
		}
	}
}

// WithMinMatches sets the sample-size floor for leaderboard eligibility.
func WithMinMatches(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minMatches = n
		}
	}
}

// WithMaxLeaderboardLimit caps one leaderboard page.
func WithMaxLeaderboardLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLimit = n
		}
	}
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
