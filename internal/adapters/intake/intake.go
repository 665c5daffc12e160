// Package intake accepts reported match ids and drives them through the
// rating engine on a bounded worker pool.
//
// The default single worker preserves submission order, which keeps
// rating updates deterministic. Raising the worker count trades that
// ordering away for throughput; the store still serializes conflicting
// writes, so correctness is unaffected.
package intake

import (
	"context"
	"fmt"
	"sync"

	"github.com/sendou-ink/sendou.ink-sub007/pkg/logger"
	"github.com/sendou-ink/sendou.ink-sub007/pkg/metrics"
)

// Default feed configuration constants.
const (
	defaultQueueSize     = 10_000
	defaultWorkerCount   = 1
	defaultSeenCacheSize = 100_000
)

// Processor applies one match's rating updates. Implementations must be
// idempotent: reprocessing a locked match returns applied=false, nil.
type Processor interface {
	ProcessMatch(ctx context.Context, matchID string) (bool, error)
}

// Feed is a bounded in-memory match id queue with attached workers.
type Feed struct {
	processor Processor
	queue     chan string
	seen      *seenCache
	workers   int
	log       logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Feed with configuration options. Workers do not run
// until Start is called.
func New(p Processor, opts ...Option) *Feed {
	f := &Feed{
		processor: p,
		workers:   defaultWorkerCount,
		log:       logger.Named("intake"),
	}

	cfg := feedConfig{
		queueSize:     defaultQueueSize,
		seenCacheSize: defaultSeenCacheSize,
	}
	for _, opt := range opts {
		opt(f, &cfg)
	}

	f.queue = make(chan string, cfg.queueSize)
	f.seen = newSeenCache(cfg.seenCacheSize)
	return f
}

// Start launches the worker pool. It returns immediately; workers stop
// when ctx is cancelled or Shutdown is called.
func (f *Feed) Start(ctx context.Context) {
	metrics.UpdateIntakeWorkers(f.workers)
	for i := 0; i < f.workers; i++ {
		f.wg.Add(1)
		go f.run(ctx, i)
	}
}

// Submit queues a match id for processing. Duplicate ids within the
// seen window are dropped silently; a full queue returns ErrQueueFull.
func (f *Feed) Submit(ctx context.Context, matchID string) error {
	if matchID == "" {
		return fmt.Errorf("%w: empty match id", ErrBadMatchID)
	}

	// The lock covers the send so Shutdown cannot close the channel
	// between the closed check and the enqueue.
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	if f.seen.seenAndRecord(matchID) {
		metrics.RecordIntakeDuplicate()
		f.log.Debug(ctx, "duplicate match id suppressed", logger.String("match_id", matchID))
		return nil
	}

	select {
	case f.queue <- matchID:
		metrics.UpdateIntakeQueueDepth(len(f.queue))
		return nil
	default:
		// Undo the seen record so a later retry is not suppressed.
		f.seen.unrecord(matchID)
		metrics.RecordIntakeDropped()
		return ErrQueueFull
	}
}

// Len returns the number of queued match ids.
func (f *Feed) Len() int {
	return len(f.queue)
}

// Shutdown stops accepting submissions, drains the queue, and waits for
// workers to finish or ctx to expire.
func (f *Feed) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		metrics.UpdateIntakeWorkers(0)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("intake shutdown: %w", ctx.Err())
	}
}

func (f *Feed) run(ctx context.Context, n int) {
	defer f.wg.Done()
	log := f.log.Named(fmt.Sprintf("worker-%d", n))

	for {
		select {
		case <-ctx.Done():
			return
		case matchID, ok := <-f.queue:
			if !ok {
				return
			}
			metrics.UpdateIntakeQueueDepth(len(f.queue))

			applied, err := f.processor.ProcessMatch(ctx, matchID)
			if err != nil {
				// Allow a resubmission to reach the processor again.
				f.seen.unrecord(matchID)
				log.Error(ctx, "match processing failed",
					logger.String("match_id", matchID),
					logger.Error(err))
				continue
			}
			if !applied {
				log.Debug(ctx, "match already locked", logger.String("match_id", matchID))
			}
		}
	}
}

// seenCache is a bounded set of recently submitted match ids with FIFO
// eviction. It only suppresses cheap duplicate work; the store's lock
// is the real idempotency guarantee.
type seenCache struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	maxSize int
}

func newSeenCache(maxSize int) *seenCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &seenCache{
		seen:    make(map[string]struct{}, maxSize),
		maxSize: maxSize,
	}
}

func (c *seenCache) seenAndRecord(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return true
	}
	if len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
	c.seen[id] = struct{}{}
	c.order = append(c.order, id)
	return false
}

func (c *seenCache) unrecord(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; !ok {
		return
	}
	delete(c.seen, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *seenCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
