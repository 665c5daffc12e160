// Package store provides durable, append-only rating persistence.
package store

import (
	"context"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
)

// Store is the persistence boundary of the rating engine.
//
// Snapshot history is append-only: rows are created by match processing
// (or season bootstrap) and never mutated or deleted. The one sanctioned
// mutation anywhere in the store is the narrow memento delta amend.
type Store interface {
	// PutOutcome records a finalized match outcome. ErrConflict if the id
	// already exists.
	PutOutcome(ctx context.Context, m *model.MatchOutcome) error

	// Outcome loads a finalized match outcome. ErrNotFound if unknown.
	Outcome(ctx context.Context, matchID string) (*model.MatchOutcome, error)

	// Latest returns the newest snapshot for a subject within a season.
	// ErrNotFound when the subject has no snapshot in that season.
	Latest(ctx context.Context, kind model.SubjectKind, subjectID string, seasonNth int) (*model.RatingSnapshot, error)

	// LastBeforeSeason returns the subject's newest snapshot from any
	// season earlier than seasonNth, for cross-season carry-over.
	LastBeforeSeason(ctx context.Context, kind model.SubjectKind, subjectID string, seasonNth int) (*model.RatingSnapshot, error)

	// LatestMany returns the latest snapshot per subject for a season,
	// restricted to subjects with matchesCount >= minMatches, ordered by
	// ordinal descending with subject id ascending as the deterministic
	// tie-break.
	LatestMany(ctx context.Context, kind model.SubjectKind, seasonNth, minMatches, limit, offset int) ([]model.RatingSnapshot, error)

	// LatestManyBelow is LatestMany for the sub-floor cohort:
	// matchesCount in [1, floor).
	LatestManyBelow(ctx context.Context, kind model.SubjectKind, seasonNth, floor, limit, offset int) ([]model.RatingSnapshot, error)

	// CohortCount counts subjects whose latest snapshot in the season has
	// matchesCount >= minMatches and, when maxMatches > 0, < maxMatches.
	CohortCount(ctx context.Context, kind model.SubjectKind, seasonNth, minMatches, maxMatches int) (int, error)

	// RankOf returns the 1-based rank of the given latest snapshot within
	// its cohort (same filters as CohortCount).
	RankOf(ctx context.Context, snap *model.RatingSnapshot, minMatches, maxMatches int) (int, error)

	// ApplyMatch atomically appends every snapshot for one match, marks
	// the outcome locked, and records the memento. ErrConflict when the
	// match is already locked or any (subject, match) snapshot exists;
	// nothing is written in that case.
	ApplyMatch(ctx context.Context, matchID string, snaps []model.RatingSnapshot, deltas []model.MementoEntry) error

	// MementoFor reads the memento recorded for a match. ErrNotFound when
	// none exists.
	MementoFor(ctx context.Context, matchID string) (*model.Memento, error)

	// AmendMementoDelta updates a single subject's delta without touching
	// any other field or row. ErrNotFound when the entry does not exist.
	AmendMementoDelta(ctx context.Context, matchID string, subject model.Subject, newDelta float64) error

	// Close releases the underlying connection.
	Close() error
}
