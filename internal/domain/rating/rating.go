// Package rating defines the pluggable rating function contract.
//
// A Func consumes the prior (mu, sigma) pair of every participant on two
// sides plus the match result, and produces new pairs. The surrounding
// engine treats the math as a black box; the only numeric requirements are
// that outputs stay finite, sigma stays positive, and the derived ordinal
// is a deterministic pure function of (mu, sigma).
package rating

import (
	"context"
	"fmt"
	"math"
)

// Rating is a skill estimate: mean and uncertainty.
type Rating struct {
	Mu    float64
	Sigma float64
}

// Result is the outcome of a match from side A's perspective.
type Result int

// Match results.
const (
	ResultWinA Result = iota
	ResultWinB
	ResultDraw
)

// Func computes new ratings from prior ratings and a result.
//
// Implementations must be stateless, must treat each side's member order
// as irrelevant (permuting a side permutes the output identically), and
// must return one new rating per input participant, in input order.
type Func interface {
	// Name identifies the algorithm, e.g. for config and logs.
	Name() string

	// Initial is the default rating for a subject with no history.
	Initial() Rating

	// Rate returns the post-match ratings for both sides.
	Rate(ctx context.Context, sideA, sideB []Rating, result Result) ([]Rating, []Rating, error)

	// Ordinal derives the scalar rank value for a rating. Higher ordinal
	// means a higher leaderboard rank.
	Ordinal(r Rating) float64
}

// checkFinite validates a computed side. Non-finite or non-positive-sigma
// outputs are fatal: clamping them would silently corrupt the ladder.
func checkFinite(name string, side []Rating) error {
	for _, r := range side {
		if math.IsNaN(r.Mu) || math.IsInf(r.Mu, 0) ||
			math.IsNaN(r.Sigma) || math.IsInf(r.Sigma, 0) {
			return fmt.Errorf("%w: %s produced non-finite rating (mu=%v sigma=%v)", ErrComputation, name, r.Mu, r.Sigma)
		}
		if r.Sigma <= 0 {
			return fmt.Errorf("%w: %s produced sigma %v", ErrComputation, name, r.Sigma)
		}
	}
	return nil
}

// validateInput rejects empty sides before any math runs.
func validateInput(name string, sideA, sideB []Rating) error {
	if len(sideA) == 0 || len(sideB) == 0 {
		return fmt.Errorf("%w: %s called with an empty side", ErrComputation, name)
	}
	return nil
}
