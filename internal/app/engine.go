// Package app wires the rating domain into one engine that implements
// the dependencies required by the HTTP API and the intake feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/rankcache"
	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/store"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/identity"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/rating"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/season"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/tier"
	"github.com/sendou-ink/sendou.ink-sub007/pkg/logger"
	"github.com/sendou-ink/sendou.ink-sub007/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultMinMatches = 7
	defaultMaxLimit   = 100

	// warmLimit bounds a full-board load when warming the rank cache.
	// Seasonal boards are far smaller in practice.
	warmLimit = 1_000_000
)

// TierInfo is the answer to a tier lookup. When Ranked is false the
// subject has no standing this season and the other fields are zero.
type TierInfo struct {
	Ranked      bool    `json:"ranked"`
	Tier        string  `json:"tier,omitempty"`
	IsTentative bool    `json:"is_tentative,omitempty"`
	Percentile  float64 `json:"percentile,omitempty"`
	Rank        int     `json:"rank,omitempty"`
	CohortSize  int     `json:"cohort_size,omitempty"`
}

// Engine orchestrates match rating processing and seasonal queries.
type Engine struct {
	store store.Store
	fn    rating.Func
	cal   *season.Calendar
	tiers *tier.List
	cache *rankcache.Cache

	minMatches int
	maxLimit   int
	now        func() time.Time
	log        logger.Logger
}

// New creates an Engine over a store and a season calendar.
func New(st store.Store, cal *season.Calendar, opts ...Option) *Engine {
	e := &Engine{
		store:      st,
		cal:        cal,
		fn:         rating.NewWengLin(),
		tiers:      tier.Default(),
		cache:      rankcache.New(),
		minMatches: defaultMinMatches,
		maxLimit:   defaultMaxLimit,
		now:        time.Now,
		log:        logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecordOutcome validates and stores a finalized match outcome so it can
// be processed. store.ErrConflict when the match id was already reported.
func (e *Engine) RecordOutcome(ctx context.Context, m *model.MatchOutcome) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := e.cal.ByNth(m.SeasonNth); err != nil {
		return fmt.Errorf("%w: unknown season %d", model.ErrInvalidOutcome, m.SeasonNth)
	}
	if m.ReportedAt.IsZero() {
		m.ReportedAt = e.now()
	}
	return e.store.PutOutcome(ctx, m)
}

// prior is a subject's rating state going into a match.
type prior struct {
	subject model.Subject
	rating  rating.Rating
	matches int
}

// ProcessMatch applies a stored outcome's rating updates. It returns
// applied=false with a nil error when the match was already locked, so
// retries and duplicate deliveries are safe no-ops.
func (e *Engine) ProcessMatch(ctx context.Context, matchID string) (bool, error) {
	start := e.now()
	defer func() {
		metrics.RecordProcessDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	outcome, err := e.store.Outcome(ctx, matchID)
	if err != nil {
		metrics.RecordMatchFailed()
		return false, fmt.Errorf("load outcome: %w", err)
	}
	if outcome.Locked {
		metrics.RecordMatchSkipped()
		return false, nil
	}
	if err := outcome.Validate(); err != nil {
		metrics.RecordMatchFailed()
		return false, err
	}

	snaps, deltas, err := e.rate(ctx, outcome)
	if err != nil {
		metrics.RecordMatchFailed()
		return false, err
	}

	if err := e.store.ApplyMatch(ctx, matchID, snaps, deltas); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Raced with another processor; their write stands.
			metrics.RecordMatchSkipped()
			return false, nil
		}
		metrics.RecordMatchFailed()
		return false, fmt.Errorf("apply match: %w", err)
	}

	metrics.RecordMatchProcessed()
	metrics.RecordSnapshotsWritten(len(snaps))

	for _, snap := range snaps {
		if snap.MatchesCount < e.minMatches {
			continue
		}
		e.cache.Upsert(rankcache.Key{SeasonNth: snap.SeasonNth, Kind: snap.Subject.Kind}, snap)
	}

	e.log.Info(ctx, "match applied",
		logger.String("match_id", matchID),
		logger.Int("season", outcome.SeasonNth),
		logger.Int("snapshots", len(snaps)))
	return true, nil
}

// rate computes every snapshot and memento entry for an outcome. Nothing
// is persisted here; a failure leaves no side effects.
func (e *Engine) rate(ctx context.Context, outcome *model.MatchOutcome) ([]model.RatingSnapshot, []model.MementoEntry, error) {
	result := rating.ResultWinA
	if outcome.Winner == model.SideB {
		result = rating.ResultWinB
	}

	priorsA, err := e.userPriors(ctx, outcome.SideA, outcome.SeasonNth)
	if err != nil {
		return nil, nil, err
	}
	priorsB, err := e.userPriors(ctx, outcome.SideB, outcome.SeasonNth)
	if err != nil {
		return nil, nil, err
	}

	rateStart := e.now()
	newA, newB, err := e.fn.Rate(ctx, ratingsOf(priorsA), ratingsOf(priorsB), result)
	if err != nil {
		return nil, nil, err
	}

	priors := append(append([]prior(nil), priorsA...), priorsB...)
	updated := append(append([]rating.Rating(nil), newA...), newB...)

	if outcome.TeamRated() {
		teamA, teamB, terr := e.teamPriors(ctx, outcome)
		if terr != nil {
			return nil, nil, terr
		}
		newTA, newTB, terr := e.fn.Rate(ctx,
			[]rating.Rating{teamA.rating}, []rating.Rating{teamB.rating}, result)
		if terr != nil {
			return nil, nil, terr
		}
		priors = append(priors, teamA, teamB)
		updated = append(updated, newTA[0], newTB[0])
	}
	metrics.RecordRatingDuration(float64(time.Since(rateStart).Microseconds()) / 1000)

	createdAt := e.now()
	snaps := make([]model.RatingSnapshot, len(priors))
	deltas := make([]model.MementoEntry, len(priors))
	for i, p := range priors {
		next := updated[i]
		snaps[i] = model.RatingSnapshot{
			Subject:      p.subject,
			SeasonNth:    outcome.SeasonNth,
			Mu:           next.Mu,
			Sigma:        next.Sigma,
			Ordinal:      e.fn.Ordinal(next),
			MatchesCount: p.matches + 1,
			MatchID:      outcome.ID,
			CreatedAt:    createdAt,
		}
		deltas[i] = model.MementoEntry{
			Subject:   p.subject,
			SeasonNth: outcome.SeasonNth,
			Delta:     e.fn.Ordinal(next) - e.fn.Ordinal(p.rating),
		}
	}
	return snaps, deltas, nil
}

func ratingsOf(priors []prior) []rating.Rating {
	out := make([]rating.Rating, len(priors))
	for i, p := range priors {
		out[i] = p.rating
	}
	return out
}

func (e *Engine) userPriors(ctx context.Context, ids []model.UserID, seasonNth int) ([]prior, error) {
	out := make([]prior, len(ids))
	for i, id := range ids {
		p, err := e.priorFor(ctx, model.UserSubject(id), seasonNth)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (e *Engine) teamPriors(ctx context.Context, outcome *model.MatchOutcome) (prior, prior, error) {
	identA, err := identity.TeamIdentity(outcome.SideA)
	if err != nil {
		return prior{}, prior{}, fmt.Errorf("%w: side A identity: %v", model.ErrInvalidOutcome, err)
	}
	identB, err := identity.TeamIdentity(outcome.SideB)
	if err != nil {
		return prior{}, prior{}, fmt.Errorf("%w: side B identity: %v", model.ErrInvalidOutcome, err)
	}
	teamA, err := e.priorFor(ctx, model.TeamSubject(identA), outcome.SeasonNth)
	if err != nil {
		return prior{}, prior{}, err
	}
	teamB, err := e.priorFor(ctx, model.TeamSubject(identB), outcome.SeasonNth)
	if err != nil {
		return prior{}, prior{}, err
	}
	return teamA, teamB, nil
}

// priorFor resolves a subject's rating going into a match: the latest
// snapshot this season, else the newest snapshot of any earlier season
// (cross-season carry-over keeps mu, sigma and the match count), else
// the rating function's initial rating.
func (e *Engine) priorFor(ctx context.Context, subject model.Subject, seasonNth int) (prior, error) {
	snap, err := e.store.Latest(ctx, subject.Kind, subject.ID, seasonNth)
	if err == nil {
		return prior{
			subject: subject,
			rating:  rating.Rating{Mu: snap.Mu, Sigma: snap.Sigma},
			matches: snap.MatchesCount,
		}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return prior{}, fmt.Errorf("load prior for %s: %w", subject, err)
	}

	snap, err = e.store.LastBeforeSeason(ctx, subject.Kind, subject.ID, seasonNth)
	if err == nil {
		return prior{
			subject: subject,
			rating:  rating.Rating{Mu: snap.Mu, Sigma: snap.Sigma},
			matches: snap.MatchesCount,
		}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return prior{}, fmt.Errorf("load carry-over for %s: %w", subject, err)
	}

	return prior{subject: subject, rating: e.fn.Initial()}, nil
}

// Leaderboard returns one page of the confirmed seasonal ranking. Limit
// is clamped to the configured maximum; rank numbering continues across
// pages.
func (e *Engine) Leaderboard(ctx context.Context, seasonNth int, kind model.SubjectKind, limit, offset int) ([]model.Entry, error) {
	start := e.now()
	defer func() {
		metrics.RecordLeaderboardQueryDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if limit < 1 || limit > e.maxLimit {
		limit = e.maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	key := rankcache.Key{SeasonNth: seasonNth, Kind: kind}
	snaps, ok := e.cache.TopN(key, limit, offset)
	if !ok {
		all, err := e.store.LatestMany(ctx, kind, seasonNth, e.minMatches, warmLimit, 0)
		if err != nil {
			return nil, fmt.Errorf("warm leaderboard: %w", err)
		}
		e.cache.Warm(key, all)
		snaps, _ = e.cache.TopN(key, limit, offset)
	}

	entries := make([]model.Entry, len(snaps))
	for i, snap := range snaps {
		entries[i] = model.Entry{
			Rank:         offset + i + 1,
			Kind:         snap.Subject.Kind,
			SubjectID:    snap.Subject.ID,
			Ordinal:      snap.Ordinal,
			Mu:           snap.Mu,
			Sigma:        snap.Sigma,
			MatchesCount: snap.MatchesCount,
		}
	}
	return entries, nil
}

// TierFor looks up a subject's tier standing for a season. A subject at
// or above the sample-size floor gets a confirmed tier from the floor
// cohort; one below it gets a tentative tier ranked within the
// sub-floor cohort. Missing data degrades to Ranked=false, never an
// error.
func (e *Engine) TierFor(ctx context.Context, kind model.SubjectKind, subjectID string, seasonNth int) (TierInfo, error) {
	start := e.now()
	defer func() {
		metrics.RecordTierQueryDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	snap, err := e.store.Latest(ctx, kind, subjectID, seasonNth)
	if errors.Is(err, store.ErrNotFound) {
		return TierInfo{}, nil
	}
	if err != nil {
		return TierInfo{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.MatchesCount < 1 {
		return TierInfo{}, nil
	}

	minMatches, maxMatches := e.minMatches, 0
	tentative := snap.MatchesCount < e.minMatches
	if tentative {
		minMatches, maxMatches = 1, e.minMatches
	}

	total, err := e.store.CohortCount(ctx, kind, seasonNth, minMatches, maxMatches)
	if err != nil {
		return TierInfo{}, fmt.Errorf("cohort count: %w", err)
	}
	rank, err := e.store.RankOf(ctx, snap, minMatches, maxMatches)
	if err != nil {
		return TierInfo{}, fmt.Errorf("rank: %w", err)
	}

	name, err := e.tiers.TierFor(rank, total)
	if err != nil {
		return TierInfo{}, fmt.Errorf("tier walk: %w", err)
	}
	return TierInfo{
		Ranked:      true,
		Tier:        name,
		IsTentative: tentative,
		Percentile:  tier.Percentile(rank, total),
		Rank:        rank,
		CohortSize:  total,
	}, nil
}

// MementoFor reads the per-subject rating deltas recorded for a match.
func (e *Engine) MementoFor(ctx context.Context, matchID string) (*model.Memento, error) {
	return e.store.MementoFor(ctx, matchID)
}

// AmendMementoDelta is the single sanctioned memento correction: it
// rewrites one subject's delta for one match and nothing else.
func (e *Engine) AmendMementoDelta(ctx context.Context, matchID string, subject model.Subject, newDelta float64) error {
	if err := e.store.AmendMementoDelta(ctx, matchID, subject, newDelta); err != nil {
		return err
	}
	e.log.Info(ctx, "memento delta amended",
		logger.String("match_id", matchID),
		logger.String("subject", subject.String()))
	return nil
}

// Calendar exposes the season calendar for callers resolving seasons.
func (e *Engine) Calendar() *season.Calendar {
	return e.cal
}

// InvalidateBoard drops one cached board; the next leaderboard query
// rebuilds it from the store.
func (e *Engine) InvalidateBoard(seasonNth int, kind model.SubjectKind) {
	e.cache.Invalidate(rankcache.Key{SeasonNth: seasonNth, Kind: kind})
}
