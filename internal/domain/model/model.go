// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// SubjectKind discriminates what a rating row is attached to.
type SubjectKind string

// Subject kinds.
const (
	KindUser SubjectKind = "USER"
	KindTeam SubjectKind = "TEAM"
)

// UserID identifies a single user.
type UserID int64

// Subject is the entity being rated: a user or an ad-hoc team identity.
// It is a tagged variant; all store operations key off it uniformly.
type Subject struct {
	Kind SubjectKind
	ID   string // user id rendered as decimal, or canonical team identity
}

// UserSubject builds the USER variant for a user id.
func UserSubject(id UserID) Subject {
	return Subject{Kind: KindUser, ID: fmt.Sprintf("%d", id)}
}

// TeamSubject builds the TEAM variant for a canonical team identity.
func TeamSubject(identity string) Subject {
	return Subject{Kind: KindTeam, ID: identity}
}

// String renders the subject as kind:id, useful for logs and map keys.
func (s Subject) String() string {
	return string(s.Kind) + ":" + s.ID
}

// Side indexes the two sides of a match.
type Side int

// Sides of a match outcome.
const (
	SideA Side = iota
	SideB
)

// MatchOutcome is an externally supplied, finalized match result.
// It is immutable once locked; Locked flips to true the instant any
// RatingSnapshot references the match.
type MatchOutcome struct {
	ID         string // stable unique id (UUID) assigned by the finalization workflow
	SeasonNth  int
	SideA      []UserID
	SideB      []UserID
	Winner     Side
	Locked     bool
	ReportedAt time.Time
}

// Players returns the member set for the given side.
func (m *MatchOutcome) Players(side Side) []UserID {
	if side == SideA {
		return m.SideA
	}
	return m.SideB
}

// Loser returns the side that did not win.
func (m *MatchOutcome) Loser() Side {
	if m.Winner == SideA {
		return SideB
	}
	return SideA
}

// TeamRated reports whether the outcome carries team-level scoring in
// addition to per-user scoring. Ad-hoc team ratings only make sense when
// both sides field more than one player.
func (m *MatchOutcome) TeamRated() bool {
	return len(m.SideA) > 1 && len(m.SideB) > 1
}

// Validate checks structural soundness of the outcome. A failure here is
// fatal for the match: nothing may be written for it.
func (m *MatchOutcome) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing match id", ErrInvalidOutcome)
	}
	if m.SeasonNth < 0 {
		return fmt.Errorf("%w: negative season ordinal %d", ErrInvalidOutcome, m.SeasonNth)
	}
	if len(m.SideA) == 0 || len(m.SideB) == 0 {
		return fmt.Errorf("%w: empty side", ErrInvalidOutcome)
	}
	if m.Winner != SideA && m.Winner != SideB {
		return fmt.Errorf("%w: unknown winner side %d", ErrInvalidOutcome, m.Winner)
	}
	seen := make(map[UserID]Side, len(m.SideA)+len(m.SideB))
	for _, id := range m.SideA {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: user %d listed twice", ErrInvalidOutcome, id)
		}
		seen[id] = SideA
	}
	for _, id := range m.SideB {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: user %d appears on both sides or twice", ErrInvalidOutcome, id)
		}
		seen[id] = SideB
	}
	return nil
}

// RatingSnapshot is one row of append-only rating history. Snapshots are
// created exclusively by match processing, immutable thereafter.
type RatingSnapshot struct {
	Subject      Subject
	SeasonNth    int
	Mu           float64
	Sigma        float64
	Ordinal      float64 // deterministic scalar derived from (mu, sigma); higher ranks earlier
	MatchesCount int     // strictly increasing per (subject, season); carries across seasons
	MatchID      string  // empty for non-match origins such as season bootstrap
	CreatedAt    time.Time
}

// MementoEntry records one subject's signed ordinal delta for a match.
type MementoEntry struct {
	Subject   Subject
	SeasonNth int
	Delta     float64 // new ordinal minus prior ordinal
}

// Memento explains how a match changed each touched subject's rating.
// It is purely descriptive and never drives further rating changes.
type Memento struct {
	MatchID string
	Entries []MementoEntry
}

// Entry is a ranked leaderboard row. Display metadata (usernames, team
// names) is resolved by the caller, not this engine.
type Entry struct {
	Rank         int         `json:"rank"`
	Kind         SubjectKind `json:"kind"`
	SubjectID    string      `json:"subject_id"`
	Ordinal      float64     `json:"ordinal"`
	Mu           float64     `json:"mu"`
	Sigma        float64     `json:"sigma"`
	MatchesCount int         `json:"matches_count"`
}
