// Package config defines service configuration structures and loading.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"fmt"
	"time"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/season"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/tier"
)

// SeasonWindow is the on-disk shape of one season. Timestamps are RFC 3339.
type SeasonWindow struct {
	Nth    int    `koanf:"nth"`
	Starts string `koanf:"starts"`
	Ends   string `koanf:"ends"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite DSN. ":memory:" keeps everything in-process.
	DBPath string `koanf:"db_path"`

	// RatingAlgorithm selects the rating function: weng-lin or glicko2.
	RatingAlgorithm string `koanf:"rating_algorithm"`

	// MinMatches is the sample-size floor: the match count required to
	// appear on the public leaderboard. Subjects below it get tentative
	// tiers ranked within their own sub-floor cohort.
	MinMatches int `koanf:"min_matches"`

	// TopTierGate is the population below which the top tier is withheld.
	TopTierGate int `koanf:"top_tier_gate"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// IntakeQueueSize bounds the in-memory match id queue.
	IntakeQueueSize int `koanf:"intake_queue_size"`

	// IntakeWorkerCount sets the number of processing workers. More than
	// one worker forfeits per-subject ordering.
	IntakeWorkerCount int `koanf:"intake_worker_count"`

	// SeenCacheSize sets the size of the duplicate-suppression cache.
	SeenCacheSize int `koanf:"seen_cache_size"`

	// Seasons lists the season windows known to this deployment.
	Seasons []SeasonWindow `koanf:"seasons"`

	// Tiers lists percentile buckets best-first. Percents must sum to 100.
	Tiers []tier.Threshold `koanf:"tiers"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DBPath:              ":memory:",
		RatingAlgorithm:     "weng-lin",
		MinMatches:          7,
		TopTierGate:         100,
		MaxLeaderboardLimit: 100,
		IntakeQueueSize:     10_000,
		IntakeWorkerCount:   1,
		SeenCacheSize:       100_000,
		Seasons: []SeasonWindow{
			{Nth: 0, Starts: "2026-02-16T00:00:00Z", Ends: "2026-05-17T00:00:00Z"},
			{Nth: 1, Starts: "2026-05-18T00:00:00Z", Ends: "2026-08-16T00:00:00Z"},
			{Nth: 2, Starts: "2026-08-17T00:00:00Z", Ends: "2026-11-15T00:00:00Z"},
		},
		Tiers: tier.Default().Thresholds(),
	}
}

// Calendar parses the configured season windows.
func (c *Config) Calendar() (*season.Calendar, error) {
	seasons := make([]season.Season, 0, len(c.Seasons))
	for _, w := range c.Seasons {
		starts, err := time.Parse(time.RFC3339, w.Starts)
		if err != nil {
			return nil, fmt.Errorf("%w: season %d starts: %v", ErrInvalidConfig, w.Nth, err)
		}
		ends, err := time.Parse(time.RFC3339, w.Ends)
		if err != nil {
			return nil, fmt.Errorf("%w: season %d ends: %v", ErrInvalidConfig, w.Nth, err)
		}
		seasons = append(seasons, season.Season{Nth: w.Nth, Starts: starts, Ends: ends})
	}
	cal, err := season.NewCalendar(seasons)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cal, nil
}

// TierList parses the configured tier thresholds.
func (c *Config) TierList() (*tier.List, error) {
	l, err := tier.NewList(c.Tiers, tier.WithTopTierGate(c.TopTierGate))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return l, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if c.MinMatches < 1 {
		return fmt.Errorf("%w: min_matches must be at least 1", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	}
	if c.IntakeQueueSize < 1 {
		return fmt.Errorf("%w: intake_queue_size must be at least 1", ErrInvalidConfig)
	}
	if c.IntakeWorkerCount < 1 {
		return fmt.Errorf("%w: intake_worker_count must be at least 1", ErrInvalidConfig)
	}
	if c.SeenCacheSize < 1 {
		return fmt.Errorf("%w: seen_cache_size must be at least 1", ErrInvalidConfig)
	}
	if _, err := c.Calendar(); err != nil {
		return err
	}
	if _, err := c.TierList(); err != nil {
		return err
	}
	return nil
}
