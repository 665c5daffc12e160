package rating

import (
	"context"

	glicko "github.com/zelenin/go-glicko2"
)

// Glicko2 implements Func on top of zelenin/go-glicko2, running one rating
// period per match with full cross-side pairings.
//
// The snapshot model stores only (mu, sigma), so volatility is pinned at
// the Glicko-2 base value between matches instead of being carried. That
// loses some of the model's long-horizon adaptivity but keeps the store
// schema algorithm-agnostic.
type Glicko2 struct{}

// NewGlicko2 constructs the Glicko-2 backed rating function.
func NewGlicko2() *Glicko2 { return &Glicko2{} }

// Name implements Func.
func (g *Glicko2) Name() string { return "glicko2" }

// Initial implements Func: the Glicko-2 base rating and deviation.
func (g *Glicko2) Initial() Rating {
	return Rating{Mu: glicko.RATING_BASE_R, Sigma: glicko.RATING_BASE_RD}
}

// Ordinal implements Func: a conservative estimate two deviations below
// the rating, on the Glicko scale.
func (g *Glicko2) Ordinal(r Rating) float64 {
	return r.Mu - 2*r.Sigma
}

// Rate implements Func.
func (g *Glicko2) Rate(ctx context.Context, sideA, sideB []Rating, result Result) ([]Rating, []Rating, error) {
	if err := validateInput(g.Name(), sideA, sideB); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	playersA := make([]*glicko.Player, len(sideA))
	playersB := make([]*glicko.Player, len(sideB))

	period := glicko.NewRatingPeriod()
	for i, r := range sideA {
		playersA[i] = glicko.NewPlayer(glicko.NewRating(r.Mu, r.Sigma, glicko.RATING_BASE_SIGMA))
		period.AddPlayer(playersA[i])
	}
	for i, r := range sideB {
		playersB[i] = glicko.NewPlayer(glicko.NewRating(r.Mu, r.Sigma, glicko.RATING_BASE_SIGMA))
		period.AddPlayer(playersB[i])
	}

	var res glicko.MatchResult
	switch result {
	case ResultWinA:
		res = glicko.MATCH_RESULT_WIN
	case ResultWinB:
		res = glicko.MATCH_RESULT_LOSS
	case ResultDraw:
		res = glicko.MATCH_RESULT_DRAW
	}

	// Every member of side A plays every member of side B once.
	for _, pa := range playersA {
		for _, pb := range playersB {
			period.AddMatch(pa, pb, res)
		}
	}
	period.Calculate()

	newA := make([]Rating, len(playersA))
	for i, p := range playersA {
		newA[i] = Rating{Mu: p.Rating().R(), Sigma: p.Rating().Rd()}
	}
	newB := make([]Rating, len(playersB))
	for i, p := range playersB {
		newB[i] = Rating{Mu: p.Rating().R(), Sigma: p.Rating().Rd()}
	}

	if err := checkFinite(g.Name(), newA); err != nil {
		return nil, nil, err
	}
	if err := checkFinite(g.Name(), newB); err != nil {
		return nil, nil, err
	}
	return newA, newB, nil
}
