package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/identity"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
)

// SQLStore implements Store on SQLite via sqlx.
//
// The (subject_kind, subject_id, match_id) unique index is the locking
// mechanism: the first transaction to append a snapshot set for a match
// wins, every later attempt fails the index and surfaces ErrConflict.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option applies a configuration option to SQLStore.
type Option func(*SQLStore)

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to the database at dsn (a file path, or ":memory:") and
// bootstraps the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from silently forking per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	s := &SQLStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// transaction runs fn inside a transaction, rolling back on error.
func (s *SQLStore) transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation detects the driver's unique-index failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// outcomeRow mirrors the match_outcomes table.
type outcomeRow struct {
	ID         string `db:"id"`
	Season     int    `db:"season"`
	SideA      string `db:"side_a"`
	SideB      string `db:"side_b"`
	Winner     int    `db:"winner"`
	Locked     int    `db:"locked"`
	ReportedAt int64  `db:"reported_at"`
}

func (r outcomeRow) toModel() (*model.MatchOutcome, error) {
	sideA, err := identity.UserIDs(r.SideA)
	if err != nil {
		return nil, fmt.Errorf("decode side A of %s: %w", r.ID, err)
	}
	sideB, err := identity.UserIDs(r.SideB)
	if err != nil {
		return nil, fmt.Errorf("decode side B of %s: %w", r.ID, err)
	}
	return &model.MatchOutcome{
		ID:         r.ID,
		SeasonNth:  r.Season,
		SideA:      sideA,
		SideB:      sideB,
		Winner:     model.Side(r.Winner),
		Locked:     r.Locked != 0,
		ReportedAt: time.Unix(r.ReportedAt, 0).UTC(),
	}, nil
}

// PutOutcome implements Store.
func (s *SQLStore) PutOutcome(ctx context.Context, m *model.MatchOutcome) error {
	if err := m.Validate(); err != nil {
		return err
	}
	sideA, err := identity.TeamIdentity(m.SideA)
	if err != nil {
		return fmt.Errorf("%w: side A: %v", model.ErrInvalidOutcome, err)
	}
	sideB, err := identity.TeamIdentity(m.SideB)
	if err != nil {
		return fmt.Errorf("%w: side B: %v", model.ErrInvalidOutcome, err)
	}

	reported := m.ReportedAt
	if reported.IsZero() {
		reported = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO match_outcomes (id, season, side_a, side_b, winner, locked, reported_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		m.ID, m.SeasonNth, sideA, sideB, int(m.Winner), reported.Unix(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: match %s", ErrConflict, m.ID)
	}
	if err != nil {
		return fmt.Errorf("insert outcome %s: %w", m.ID, err)
	}
	return nil
}

// Outcome implements Store.
func (s *SQLStore) Outcome(ctx context.Context, matchID string) (*model.MatchOutcome, error) {
	var row outcomeRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, season, side_a, side_b, winner, locked, reported_at
		 FROM match_outcomes WHERE id = ?`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("load outcome %s: %w", matchID, err)
	}
	return row.toModel()
}

// snapshotRow mirrors the rating_snapshots table.
type snapshotRow struct {
	ID           int64          `db:"id"`
	SubjectKind  string         `db:"subject_kind"`
	SubjectID    string         `db:"subject_id"`
	Season       int            `db:"season"`
	Mu           float64        `db:"mu"`
	Sigma        float64        `db:"sigma"`
	Ordinal      float64        `db:"ordinal"`
	MatchesCount int            `db:"matches_count"`
	MatchID      sql.NullString `db:"match_id"`
	CreatedAt    int64          `db:"created_at"`
}

func (r snapshotRow) toModel() model.RatingSnapshot {
	return model.RatingSnapshot{
		Subject:      model.Subject{Kind: model.SubjectKind(r.SubjectKind), ID: r.SubjectID},
		SeasonNth:    r.Season,
		Mu:           r.Mu,
		Sigma:        r.Sigma,
		Ordinal:      r.Ordinal,
		MatchesCount: r.MatchesCount,
		MatchID:      r.MatchID.String,
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
	}
}

const snapshotColumns = `id, subject_kind, subject_id, season, mu, sigma, ordinal, matches_count, match_id, created_at`

// Latest implements Store.
func (s *SQLStore) Latest(ctx context.Context, kind model.SubjectKind, subjectID string, seasonNth int) (*model.RatingSnapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+snapshotColumns+` FROM rating_snapshots
		 WHERE subject_kind = ? AND subject_id = ? AND season = ?
		 ORDER BY id DESC LIMIT 1`,
		string(kind), subjectID, seasonNth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s:%s in season %d", ErrNotFound, kind, subjectID, seasonNth)
	}
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	snap := row.toModel()
	return &snap, nil
}

// LastBeforeSeason implements Store.
func (s *SQLStore) LastBeforeSeason(ctx context.Context, kind model.SubjectKind, subjectID string, seasonNth int) (*model.RatingSnapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+snapshotColumns+` FROM rating_snapshots
		 WHERE subject_kind = ? AND subject_id = ? AND season < ?
		 ORDER BY season DESC, id DESC LIMIT 1`,
		string(kind), subjectID, seasonNth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s:%s before season %d", ErrNotFound, kind, subjectID, seasonNth)
	}
	if err != nil {
		return nil, fmt.Errorf("load carry-over snapshot: %w", err)
	}
	snap := row.toModel()
	return &snap, nil
}

// latestPerSubject is the shared "newest snapshot per subject in season"
// sub-select. Filters on matches_count are applied by the callers.
const latestPerSubject = `
	SELECT ` + snapshotColumns + `, ROW_NUMBER() OVER (PARTITION BY subject_id ORDER BY id DESC) AS rn
	FROM rating_snapshots
	WHERE subject_kind = ? AND season = ?`

// LatestMany implements Store.
func (s *SQLStore) LatestMany(ctx context.Context, kind model.SubjectKind, seasonNth, minMatches, limit, offset int) ([]model.RatingSnapshot, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit %d offset %d", ErrInvalidLimit, limit, offset)
	}
	return s.queryRanked(ctx,
		`SELECT `+snapshotColumns+` FROM (`+latestPerSubject+`)
		 WHERE rn = 1 AND matches_count >= ?
		 ORDER BY ordinal DESC, subject_id ASC
		 LIMIT ? OFFSET ?`,
		string(kind), seasonNth, minMatches, limit, offset)
}

// LatestManyBelow implements Store.
func (s *SQLStore) LatestManyBelow(ctx context.Context, kind model.SubjectKind, seasonNth, floor, limit, offset int) ([]model.RatingSnapshot, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit %d offset %d", ErrInvalidLimit, limit, offset)
	}
	return s.queryRanked(ctx,
		`SELECT `+snapshotColumns+` FROM (`+latestPerSubject+`)
		 WHERE rn = 1 AND matches_count >= 1 AND matches_count < ?
		 ORDER BY ordinal DESC, subject_id ASC
		 LIMIT ? OFFSET ?`,
		string(kind), seasonNth, floor, limit, offset)
}

func (s *SQLStore) queryRanked(ctx context.Context, query string, args ...any) ([]model.RatingSnapshot, error) {
	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query leaderboard snapshots: %w", err)
	}
	out := make([]model.RatingSnapshot, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// cohortFilter renders the matches_count window shared by CohortCount and
// RankOf. maxMatches <= 0 means unbounded.
func cohortFilter(minMatches, maxMatches int) (string, []any) {
	clause := ` AND matches_count >= ?`
	args := []any{minMatches}
	if maxMatches > 0 {
		clause += ` AND matches_count < ?`
		args = append(args, maxMatches)
	}
	return clause, args
}

// CohortCount implements Store.
func (s *SQLStore) CohortCount(ctx context.Context, kind model.SubjectKind, seasonNth, minMatches, maxMatches int) (int, error) {
	clause, extra := cohortFilter(minMatches, maxMatches)
	args := append([]any{string(kind), seasonNth}, extra...)

	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM (`+latestPerSubject+`) WHERE rn = 1`+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("count cohort: %w", err)
	}
	return n, nil
}

// RankOf implements Store.
func (s *SQLStore) RankOf(ctx context.Context, snap *model.RatingSnapshot, minMatches, maxMatches int) (int, error) {
	clause, extra := cohortFilter(minMatches, maxMatches)
	args := append([]any{string(snap.Subject.Kind), snap.SeasonNth}, extra...)
	args = append(args, snap.Ordinal, snap.Ordinal, snap.Subject.ID)

	var ahead int
	err := s.db.GetContext(ctx, &ahead,
		`SELECT COUNT(*) FROM (`+latestPerSubject+`) WHERE rn = 1`+clause+`
		 AND (ordinal > ? OR (ordinal = ? AND subject_id < ?))`, args...)
	if err != nil {
		return 0, fmt.Errorf("rank subject: %w", err)
	}
	return ahead + 1, nil
}

// ApplyMatch implements Store. All writes happen in one transaction: the
// snapshots, the lock flag, and the memento either all land or none do.
func (s *SQLStore) ApplyMatch(ctx context.Context, matchID string, snaps []model.RatingSnapshot, deltas []model.MementoEntry) error {
	if len(snaps) == 0 {
		return fmt.Errorf("%w: no snapshots for match %s", model.ErrInvalidOutcome, matchID)
	}

	now := s.now().Unix()
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		// Taking the lock first serializes concurrent processors on the
		// same match before any snapshot insert can race.
		res, err := tx.ExecContext(ctx,
			`UPDATE match_outcomes SET locked = 1 WHERE id = ? AND locked = 0`, matchID)
		if err != nil {
			return fmt.Errorf("lock match %s: %w", matchID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("lock match %s: %w", matchID, err)
		}
		if affected == 0 {
			// Either unknown or already locked; disambiguate for callers.
			var n int
			if err := tx.GetContext(ctx, &n,
				`SELECT COUNT(*) FROM match_outcomes WHERE id = ?`, matchID); err != nil {
				return fmt.Errorf("check match %s: %w", matchID, err)
			}
			if n == 0 {
				return fmt.Errorf("%w: match %s", ErrNotFound, matchID)
			}
			return fmt.Errorf("%w: match %s already locked", ErrConflict, matchID)
		}

		for _, snap := range snaps {
			var mid sql.NullString
			if snap.MatchID != "" {
				mid = sql.NullString{String: snap.MatchID, Valid: true}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO rating_snapshots
				 (subject_kind, subject_id, season, mu, sigma, ordinal, matches_count, match_id, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				string(snap.Subject.Kind), snap.Subject.ID, snap.SeasonNth,
				snap.Mu, snap.Sigma, snap.Ordinal, snap.MatchesCount, mid, now,
			)
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: snapshot for %s in match %s", ErrConflict, snap.Subject, matchID)
			}
			if err != nil {
				return fmt.Errorf("insert snapshot for %s: %w", snap.Subject, err)
			}
		}

		for _, d := range deltas {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO mementos (match_id, subject_kind, subject_id, season, delta)
				 VALUES (?, ?, ?, ?, ?)`,
				matchID, string(d.Subject.Kind), d.Subject.ID, d.SeasonNth, d.Delta,
			)
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: memento for %s in match %s", ErrConflict, d.Subject, matchID)
			}
			if err != nil {
				return fmt.Errorf("insert memento for %s: %w", d.Subject, err)
			}
		}
		return nil
	})
}

// mementoRow mirrors the mementos table.
type mementoRow struct {
	MatchID     string  `db:"match_id"`
	SubjectKind string  `db:"subject_kind"`
	SubjectID   string  `db:"subject_id"`
	Season      int     `db:"season"`
	Delta       float64 `db:"delta"`
}

// MementoFor implements Store.
func (s *SQLStore) MementoFor(ctx context.Context, matchID string) (*model.Memento, error) {
	var rows []mementoRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT match_id, subject_kind, subject_id, season, delta
		 FROM mementos WHERE match_id = ?
		 ORDER BY subject_kind, subject_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("load memento %s: %w", matchID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: memento for match %s", ErrNotFound, matchID)
	}

	m := &model.Memento{MatchID: matchID, Entries: make([]model.MementoEntry, len(rows))}
	for i, r := range rows {
		m.Entries[i] = model.MementoEntry{
			Subject:   model.Subject{Kind: model.SubjectKind(r.SubjectKind), ID: r.SubjectID},
			SeasonNth: r.Season,
			Delta:     r.Delta,
		}
	}
	return m, nil
}

// AmendMementoDelta implements Store. Only the delta column is touched;
// season and subject linkage stay as recorded.
func (s *SQLStore) AmendMementoDelta(ctx context.Context, matchID string, subject model.Subject, newDelta float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mementos SET delta = ?
		 WHERE match_id = ? AND subject_kind = ? AND subject_id = ?`,
		newDelta, matchID, string(subject.Kind), subject.ID)
	if err != nil {
		return fmt.Errorf("amend memento: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("amend memento: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: memento entry for %s in match %s", ErrNotFound, subject, matchID)
	}
	return nil
}
