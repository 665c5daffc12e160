package intake

import (
	"github.com/sendou-ink/sendou.ink-sub007/pkg/logger"
)

type feedConfig struct {
	queueSize     int
	seenCacheSize int
}

// Option applies a configuration option to Feed.
type Option func(*Feed, *feedConfig)

// WithQueueSize bounds the match id queue.
func WithQueueSize(n int) Option {
	return func(_ *Feed, cfg *feedConfig) {
		if n > 0 {
			cfg.queueSize = n
		}
	}
}

// WithWorkerCount sets the number of processing workers. Anything above
// one forfeits submission-order processing.
func WithWorkerCount(n int) Option {
	return func(f *Feed, _ *feedConfig) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithSeenCacheSize bounds the duplicate-suppression cache.
func WithSeenCacheSize(n int) Option {
	return func(_ *Feed, cfg *feedConfig) {
		if n > 0 {
			cfg.seenCacheSize = n
		}
	}
}

// WithLogger overrides the feed's logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Feed, _ *feedConfig) {
		if l != nil {
			f.log = l
		}
	}
}
