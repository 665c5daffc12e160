// Package rankcache keeps an in-memory ranked view of each season
// leaderboard for fast reads.
//
// One treap per (season, kind), ordered by ordinal DESC with subject id
// ASC as the deterministic tie-break, so in-order traversal produces the
// leaderboard from best to worst. The cache is explicitly maintained: the
// engine upserts after every applied match and warms a board from the
// store on first read. Reads of a cold board report a miss instead of
// guessing.
package rankcache

import (
	"math"
	"math/rand"
	"sync"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
	"github.com/sendou-ink/sendou.ink-sub007/pkg/metrics"
)

// ordinalScale controls fixed-point scaling from float64 ordinals, which
// keeps comparisons exact across upserts of the same value.
const ordinalScale = 1_000_000_000_000 // 12 decimal places

type ordinalFP int64

func toFixedPoint(x float64) ordinalFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * ordinalScale
	if scaled > float64(math.MaxInt64) {
		return ordinalFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return ordinalFP(math.MinInt64)
	}
	return ordinalFP(math.Round(scaled))
}

// Key addresses one cached board.
type Key struct {
	SeasonNth int
	Kind      model.SubjectKind
}

// less returns true if (aOrd, aID) ranks earlier than (bOrd, bID).
func less(aOrd ordinalFP, aID string, bOrd ordinalFP, bID string) bool {
	if aOrd != bOrd {
		return aOrd > bOrd // higher ordinal ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

// treap node, size-augmented for order statistics.
type node struct {
	id    string
	ord   ordinalFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, ord ordinalFP) *node {
	if n == nil {
		return &node{id: id, ord: ord, prio: rand.Uint64(), size: 1} //nolint:gosec // balance only, not security
	}
	if less(ord, id, n.ord, n.id) {
		n.left = insert(n.left, id, ord)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, ord)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, ord ordinalFP) *node {
	if n == nil {
		return nil
	}
	if ord == n.ord && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, ord)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, ord)
		}
	} else if less(ord, id, n.ord, n.id) {
		n.left = deleteNode(n.left, id, ord)
	} else {
		n.right = deleteNode(n.right, id, ord)
	}
	fix(n)
	return n
}

// rankBefore counts entries that rank strictly earlier than (ord, id).
func rankBefore(n *node, id string, ord ordinalFP) int {
	if n == nil {
		return 0
	}
	if less(ord, id, n.ord, n.id) {
		return rankBefore(n.left, id, ord)
	}
	if ord == n.ord && id == n.id {
		return nsize(n.left)
	}
	return nsize(n.left) + 1 + rankBefore(n.right, id, ord)
}

// collect appends up to limit entries in rank order, skipping offset,
// using subtree sizes to avoid walking the skipped prefix.
func collect(n *node, offset, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	l := nsize(n.left)
	switch {
	case offset < l:
		collect(n.left, offset, limit, out)
		if len(*out) < limit {
			*out = append(*out, n.id)
		}
		collect(n.right, 0, limit, out)
	case offset == l:
		*out = append(*out, n.id)
		collect(n.right, 0, limit, out)
	default:
		collect(n.right, offset-l-1, limit, out)
	}
}

// rec is the cached per-subject state behind a treap node.
type rec struct {
	ord  ordinalFP
	snap model.RatingSnapshot
}

// board is one season+kind leaderboard.
type board struct {
	root *node
	byID map[string]rec
}

// Cache holds all warmed boards.
type Cache struct {
	mu     sync.RWMutex
	boards map[Key]*board
}

// New constructs an empty cache; boards appear on Warm.
func New() *Cache {
	return &Cache{boards: make(map[Key]*board)}
}

// Warm installs a board from store-ordered snapshots, replacing any
// previous state for the key.
func (c *Cache) Warm(key Key, snaps []model.RatingSnapshot) {
	b := &board{byID: make(map[string]rec, len(snaps))}
	for _, s := range snaps {
		ord := toFixedPoint(s.Ordinal)
		b.root = insert(b.root, s.Subject.ID, ord)
		b.byID[s.Subject.ID] = rec{ord: ord, snap: s}
	}
	c.mu.Lock()
	c.boards[key] = b
	c.mu.Unlock()
}

// Upsert replaces a subject's cached position on an already-warm board.
// Cold boards are left cold: they will be warmed wholesale on next read.
func (c *Cache) Upsert(key Key, snap model.RatingSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.boards[key]
	if !ok {
		return
	}
	id := snap.Subject.ID
	if old, exists := b.byID[id]; exists {
		b.root = deleteNode(b.root, id, old.ord)
	}
	ord := toFixedPoint(snap.Ordinal)
	b.root = insert(b.root, id, ord)
	b.byID[id] = rec{ord: ord, snap: snap}
	metrics.RecordCacheUpsert()
}

// Invalidate drops a board entirely.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	delete(c.boards, key)
	c.mu.Unlock()
	metrics.RecordCacheInvalidation()
}

// TopN returns up to limit entries starting at offset, in rank order.
// ok is false when the board is cold.
func (c *Cache) TopN(key Key, limit, offset int) ([]model.RatingSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.boards[key]
	if !ok {
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()

	ids := make([]string, 0, limit)
	collect(b.root, offset, limit, &ids)

	out := make([]model.RatingSnapshot, len(ids))
	for i, id := range ids {
		out[i] = b.byID[id].snap
	}
	return out, true
}

// RankOf returns the 1-based rank of a subject on a warm board.
// ok is false when the board is cold or the subject is absent.
func (c *Cache) RankOf(key Key, subjectID string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.boards[key]
	if !ok {
		metrics.RecordCacheMiss()
		return 0, false
	}
	r, exists := b.byID[subjectID]
	if !exists {
		return 0, false
	}
	metrics.RecordCacheHit()
	return rankBefore(b.root, subjectID, r.ord) + 1, true
}

// Len returns the number of subjects on a board; ok is false when cold.
func (c *Cache) Len(key Key) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.boards[key]
	if !ok {
		return 0, false
	}
	return nsize(b.root), true
}
