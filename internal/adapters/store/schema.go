package store

// Schema bootstrap. Timestamps are stored as unix seconds to stay
// driver-portable; sides are stored in the canonical identity encoding.
const schema = `
CREATE TABLE IF NOT EXISTS match_outcomes (
	id          TEXT PRIMARY KEY,
	season      INTEGER NOT NULL,
	side_a      TEXT    NOT NULL,
	side_b      TEXT    NOT NULL,
	winner      INTEGER NOT NULL,
	locked      INTEGER NOT NULL DEFAULT 0,
	reported_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rating_snapshots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_kind  TEXT    NOT NULL,
	subject_id    TEXT    NOT NULL,
	season        INTEGER NOT NULL,
	mu            REAL    NOT NULL,
	sigma         REAL    NOT NULL,
	ordinal       REAL    NOT NULL,
	matches_count INTEGER NOT NULL,
	match_id      TEXT,
	created_at    INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_snapshots_subject_match
	ON rating_snapshots(subject_kind, subject_id, match_id);

CREATE INDEX IF NOT EXISTS ix_snapshots_subject_season
	ON rating_snapshots(subject_kind, subject_id, season, id);

CREATE INDEX IF NOT EXISTS ix_snapshots_season_kind
	ON rating_snapshots(season, subject_kind);

CREATE TABLE IF NOT EXISTS mementos (
	match_id     TEXT    NOT NULL,
	subject_kind TEXT    NOT NULL,
	subject_id   TEXT    NOT NULL,
	season       INTEGER NOT NULL,
	delta        REAL    NOT NULL,
	PRIMARY KEY (match_id, subject_kind, subject_id)
);
`
