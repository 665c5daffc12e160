package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/store"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func outcome(id string, seasonNth int, a, b []model.UserID, winner model.Side) *model.MatchOutcome {
	return &model.MatchOutcome{
		ID:         id,
		SeasonNth:  seasonNth,
		SideA:      a,
		SideB:      b,
		Winner:     winner,
		ReportedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func snap(sub model.Subject, seasonNth int, ordinal float64, count int, matchID string) model.RatingSnapshot {
	return model.RatingSnapshot{
		Subject:      sub,
		SeasonNth:    seasonNth,
		Mu:           25 + ordinal,
		Sigma:        8,
		Ordinal:      ordinal,
		MatchesCount: count,
		MatchID:      matchID,
	}
}

func TestOutcomes(t *testing.T) {
	Convey("Given an open store", t, func() {
		s := openStore(t)
		ctx := context.Background()

		Convey("When an outcome is recorded", func() {
			m := outcome("m1", 5, []model.UserID{3, 1}, []model.UserID{2, 4}, model.SideA)
			So(s.PutOutcome(ctx, m), ShouldBeNil)

			Convey("Then it reads back with canonical sides and unlocked", func() {
				got, err := s.Outcome(ctx, "m1")
				So(err, ShouldBeNil)
				So(got.SideA, ShouldResemble, []model.UserID{1, 3})
				So(got.SideB, ShouldResemble, []model.UserID{2, 4})
				So(got.Winner, ShouldEqual, model.SideA)
				So(got.Locked, ShouldBeFalse)
			})

			Convey("And recording the same id again conflicts", func() {
				err := s.PutOutcome(ctx, m)
				So(errors.Is(err, store.ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When an invalid outcome is recorded", func() {
			m := outcome("bad", 5, nil, []model.UserID{2}, model.SideA)
			So(errors.Is(s.PutOutcome(ctx, m), model.ErrInvalidOutcome), ShouldBeTrue)
		})

		Convey("When an unknown outcome is read", func() {
			_, err := s.Outcome(ctx, "nope")
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestApplyMatch(t *testing.T) {
	Convey("Given a recorded 1v1 outcome", t, func() {
		s := openStore(t)
		ctx := context.Background()
		So(s.PutOutcome(ctx, outcome("m1", 5, []model.UserID{1}, []model.UserID{2}, model.SideA)), ShouldBeNil)

		u1 := model.UserSubject(1)
		u2 := model.UserSubject(2)
		snaps := []model.RatingSnapshot{
			snap(u1, 5, 2.5, 1, "m1"),
			snap(u2, 5, -2.5, 1, "m1"),
		}
		deltas := []model.MementoEntry{
			{Subject: u1, SeasonNth: 5, Delta: 2.5},
			{Subject: u2, SeasonNth: 5, Delta: -2.5},
		}

		Convey("When the match is applied", func() {
			So(s.ApplyMatch(ctx, "m1", snaps, deltas), ShouldBeNil)

			Convey("Then the outcome is locked", func() {
				got, err := s.Outcome(ctx, "m1")
				So(err, ShouldBeNil)
				So(got.Locked, ShouldBeTrue)
			})

			Convey("And each subject has exactly one snapshot", func() {
				got, err := s.Latest(ctx, model.KindUser, "1", 5)
				So(err, ShouldBeNil)
				So(got.MatchesCount, ShouldEqual, 1)
				So(got.MatchID, ShouldEqual, "m1")
				So(got.Ordinal, ShouldAlmostEqual, 2.5)
			})

			Convey("And the memento reads back", func() {
				m, err := s.MementoFor(ctx, "m1")
				So(err, ShouldBeNil)
				So(m.Entries, ShouldHaveLength, 2)
			})

			Convey("And applying again conflicts without writing", func() {
				err := s.ApplyMatch(ctx, "m1", snaps, deltas)
				So(errors.Is(err, store.ErrConflict), ShouldBeTrue)

				many, err := s.LatestMany(ctx, model.KindUser, 5, 0, 10, 0)
				So(err, ShouldBeNil)
				So(many, ShouldHaveLength, 2)
			})
		})

		Convey("When a mid-transaction failure occurs", func() {
			// Duplicate subject rows trip the unique index on the second
			// insert, after the lock and first snapshot already ran.
			dup := []model.RatingSnapshot{
				snap(u1, 5, 1, 1, "m1"),
				snap(u1, 5, 1, 1, "m1"),
			}
			err := s.ApplyMatch(ctx, "m1", dup, nil)
			So(errors.Is(err, store.ErrConflict), ShouldBeTrue)

			Convey("Then nothing was written at all", func() {
				got, err := s.Outcome(ctx, "m1")
				So(err, ShouldBeNil)
				So(got.Locked, ShouldBeFalse)

				_, err = s.Latest(ctx, model.KindUser, "1", 5)
				So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an unknown match is applied", func() {
			err := s.ApplyMatch(ctx, "ghost", snaps, deltas)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a match is applied with no snapshots", func() {
			err := s.ApplyMatch(ctx, "m1", nil, nil)
			So(errors.Is(err, model.ErrInvalidOutcome), ShouldBeTrue)
		})
	})
}

func TestSnapshotQueries(t *testing.T) {
	Convey("Given snapshot history across two seasons", t, func() {
		s := openStore(t)
		ctx := context.Background()

		// Season 4: user 1 reached 9 matches; applied via three outcomes.
		So(s.PutOutcome(ctx, outcome("s4m1", 4, []model.UserID{1}, []model.UserID{2}, model.SideA)), ShouldBeNil)
		So(s.ApplyMatch(ctx, "s4m1", []model.RatingSnapshot{
			snap(model.UserSubject(1), 4, 3.0, 9, "s4m1"),
			snap(model.UserSubject(2), 4, -1.0, 4, "s4m1"),
		}, nil), ShouldBeNil)

		// Season 5: several users at various counts and ordinals.
		put := func(matchID string, snaps ...model.RatingSnapshot) {
			So(s.PutOutcome(ctx, outcome(matchID, 5, []model.UserID{1}, []model.UserID{2}, model.SideA)), ShouldBeNil)
			So(s.ApplyMatch(ctx, matchID, snaps, nil), ShouldBeNil)
		}
		put("s5m1",
			snap(model.UserSubject(1), 5, 1.0, 10, "s5m1"),
			snap(model.UserSubject(2), 5, 4.0, 5, "s5m1"),
		)
		put("s5m2",
			snap(model.UserSubject(1), 5, 5.0, 11, "s5m2"), // supersedes the 1.0 row
			snap(model.UserSubject(3), 5, 5.0, 8, "s5m2"),  // tie on ordinal with user 1
		)
		put("s5m3",
			snap(model.UserSubject(9), 5, 9.0, 2, "s5m3"), // below any floor of 3+
		)

		Convey("When the leaderboard page is queried with floor 3", func() {
			many, err := s.LatestMany(ctx, model.KindUser, 5, 3, 10, 0)
			So(err, ShouldBeNil)

			Convey("Then only the latest row per subject appears, ordered with deterministic ties", func() {
				So(many, ShouldHaveLength, 3)
				// 5.0/"1" before 5.0/"3" (subject id ascending), then 4.0/"2".
				So(many[0].Subject.ID, ShouldEqual, "1")
				So(many[0].Ordinal, ShouldAlmostEqual, 5.0)
				So(many[1].Subject.ID, ShouldEqual, "3")
				So(many[2].Subject.ID, ShouldEqual, "2")
			})

			Convey("And re-running the query yields identical output", func() {
				again, err := s.LatestMany(ctx, model.KindUser, 5, 3, 10, 0)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, many)
			})

			Convey("And offset pagination works", func() {
				page, err := s.LatestMany(ctx, model.KindUser, 5, 3, 2, 2)
				So(err, ShouldBeNil)
				So(page, ShouldHaveLength, 1)
				So(page[0].Subject.ID, ShouldEqual, "2")
			})
		})

		Convey("When the sub-floor cohort is queried", func() {
			below, err := s.LatestManyBelow(ctx, model.KindUser, 5, 3, 10, 0)
			So(err, ShouldBeNil)
			So(below, ShouldHaveLength, 1)
			So(below[0].Subject.ID, ShouldEqual, "9")
		})

		Convey("When cohorts are counted", func() {
			confirmed, err := s.CohortCount(ctx, model.KindUser, 5, 3, 0)
			So(err, ShouldBeNil)
			So(confirmed, ShouldEqual, 3)

			provisional, err := s.CohortCount(ctx, model.KindUser, 5, 1, 3)
			So(err, ShouldBeNil)
			So(provisional, ShouldEqual, 1)
		})

		Convey("When a subject is ranked", func() {
			latest, err := s.Latest(ctx, model.KindUser, "3", 5)
			So(err, ShouldBeNil)
			rank, err := s.RankOf(ctx, latest, 3, 0)
			So(err, ShouldBeNil)
			// Tied ordinal, higher subject id: ranked right after user 1.
			So(rank, ShouldEqual, 2)
		})

		Convey("When carry-over history is read", func() {
			prev, err := s.LastBeforeSeason(ctx, model.KindUser, "1", 5)
			So(err, ShouldBeNil)
			So(prev.SeasonNth, ShouldEqual, 4)
			So(prev.MatchesCount, ShouldEqual, 9)

			_, err = s.LastBeforeSeason(ctx, model.KindUser, "9", 5)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})

		Convey("When an invalid page is requested", func() {
			_, err := s.LatestMany(ctx, model.KindUser, 5, 0, 0, 0)
			So(errors.Is(err, store.ErrInvalidLimit), ShouldBeTrue)
		})
	})
}

func TestMementoAmend(t *testing.T) {
	Convey("Given an applied match with a memento", t, func() {
		s := openStore(t)
		ctx := context.Background()
		u1 := model.UserSubject(1)

		So(s.PutOutcome(ctx, outcome("m1", 5, []model.UserID{1}, []model.UserID{2}, model.SideA)), ShouldBeNil)
		So(s.ApplyMatch(ctx, "m1",
			[]model.RatingSnapshot{snap(u1, 5, 2, 1, "m1"), snap(model.UserSubject(2), 5, -2, 1, "m1")},
			[]model.MementoEntry{{Subject: u1, SeasonNth: 5, Delta: 2}},
		), ShouldBeNil)

		Convey("When a delta is amended", func() {
			So(s.AmendMementoDelta(ctx, "m1", u1, 1.75), ShouldBeNil)

			Convey("Then only the delta changed", func() {
				m, err := s.MementoFor(ctx, "m1")
				So(err, ShouldBeNil)
				So(m.Entries, ShouldHaveLength, 1)
				So(m.Entries[0].Delta, ShouldAlmostEqual, 1.75)
				So(m.Entries[0].SeasonNth, ShouldEqual, 5)
				So(m.Entries[0].Subject, ShouldResemble, u1)
			})
		})

		Convey("When an unknown entry is amended", func() {
			err := s.AmendMementoDelta(ctx, "m1", model.UserSubject(99), 1)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a memento for an unknown match is read", func() {
			_, err := s.MementoFor(ctx, "ghost")
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})
	})
}
