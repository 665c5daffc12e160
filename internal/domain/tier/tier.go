// Package tier buckets a ranked leaderboard into named percentile tiers.
package tier

import (
	"fmt"
	"math"
)

// Default top-tier gating: the highest tier is only awarded once the
// confirmed population is at least this large.
const defaultTopTierGate = 100

// Threshold names one tier and the percentile mass it covers.
type Threshold struct {
	Name    string  `koanf:"name"`
	Percent float64 `koanf:"percent"`
}

// List is an ordered, validated tier table. Index zero is the top tier.
type List struct {
	tiers   []Threshold
	topGate int
}

// Option applies a configuration option to List.
type Option func(*List)

// WithTopTierGate sets the minimum confirmed population for the top tier.
func WithTopTierGate(n int) Option {
	return func(l *List) {
		if n >= 0 {
			l.topGate = n
		}
	}
}

// NewList validates the thresholds: unique non-empty names, positive
// percentile mass, cumulative mass exactly 100. The table partitions any
// population without gaps or overlaps by construction.
func NewList(tiers []Threshold, opts ...Option) (*List, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: empty tier table", ErrBadThresholds)
	}

	var sum float64
	names := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: unnamed tier", ErrBadThresholds)
		}
		if _, dup := names[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tier %q", ErrBadThresholds, t.Name)
		}
		names[t.Name] = struct{}{}
		if t.Percent <= 0 {
			return nil, fmt.Errorf("%w: tier %q has non-positive mass", ErrBadThresholds, t.Name)
		}
		sum += t.Percent
	}
	if math.Abs(sum-100) > 1e-9 {
		return nil, fmt.Errorf("%w: cumulative mass is %v, want 100", ErrBadThresholds, sum)
	}

	l := &List{
		tiers:   append([]Threshold(nil), tiers...),
		topGate: defaultTopTierGate,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Default returns the ladder's stock tier table.
func Default() *List {
	l, err := NewList([]Threshold{
		{Name: "LEVIATHAN", Percent: 5},
		{Name: "DIAMOND", Percent: 10},
		{Name: "PLATINUM", Percent: 15},
		{Name: "GOLD", Percent: 20},
		{Name: "SILVER", Percent: 20},
		{Name: "BRONZE", Percent: 15},
		{Name: "IRON", Percent: 15},
	})
	if err != nil {
		panic(err) // static table, unreachable
	}
	return l
}

// TierFor maps a 1-based dense rank within a population of the given size
// to a tier name. If the population is below the top-tier gate, the top
// tier's percentile mass is absorbed by the next tier down.
func (l *List) TierFor(rank, total int) (string, error) {
	if total <= 0 || rank < 1 || rank > total {
		return "", fmt.Errorf("%w: rank %d of %d", ErrOutOfRange, rank, total)
	}

	tiers := l.tiers
	if total < l.topGate && len(tiers) > 1 {
		merged := make([]Threshold, len(tiers)-1)
		copy(merged, tiers[1:])
		merged[0].Percent += tiers[0].Percent
		tiers = merged
	}

	cum := 0.0
	for _, t := range tiers {
		cum += t.Percent
		boundary := int(math.Ceil(cum / 100 * float64(total)))
		if rank <= boundary {
			return t.Name, nil
		}
	}
	// Float slack on the final accumulation; the last tier owns the tail.
	return tiers[len(tiers)-1].Name, nil
}

// Percentile converts a 1-based rank to its percentile within total.
func Percentile(rank, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(rank) / float64(total) * 100
}

// Thresholds returns a copy of the tier table, top first.
func (l *List) Thresholds() []Threshold {
	return append([]Threshold(nil), l.tiers...)
}

// Names returns the tier names in order, top first.
func (l *List) Names() []string {
	out := make([]string, len(l.tiers))
	for i, t := range l.tiers {
		out[i] = t.Name
	}
	return out
}
