package app

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/store"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/season"
)

func testCalendar() *season.Calendar {
	cal, err := season.NewCalendar([]season.Season{
		{
			Nth:    0,
			Starts: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
			Ends:   time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			Nth:    1,
			Starts: time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC),
			Ends:   time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		panic(err)
	}
	return cal
}

func testEngine(t *testing.T, opts ...Option) (*Engine, store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, testCalendar(), append([]Option{WithMinMatches(2)}, opts...)...), st
}

func outcome(id string, seasonNth int, sideA, sideB []model.UserID, winner model.Side) *model.MatchOutcome {
	return &model.MatchOutcome{
		ID:         id,
		SeasonNth:  seasonNth,
		SideA:      sideA,
		SideB:      sideB,
		Winner:     winner,
		ReportedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func mustProcess(ctx context.Context, t *testing.T, e *Engine, m *model.MatchOutcome) {
	t.Helper()
	if err := e.RecordOutcome(ctx, m); err != nil {
		t.Fatalf("record %s: %v", m.ID, err)
	}
	applied, err := e.ProcessMatch(ctx, m.ID)
	if err != nil || !applied {
		t.Fatalf("process %s: applied=%v err=%v", m.ID, applied, err)
	}
}

func TestProcessMatch(t *testing.T) {
	Convey("Given an engine over an empty store", t, func() {
		ctx := context.Background()
		e, st := testEngine(t)

		Convey("When a 2v2 match is recorded and processed", func() {
			m := outcome("m1", 0, []model.UserID{2, 1}, []model.UserID{3, 4}, model.SideA)
			So(e.RecordOutcome(ctx, m), ShouldBeNil)

			applied, err := e.ProcessMatch(ctx, "m1")
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)

			Convey("Then every participant has one snapshot", func() {
				for _, id := range []string{"1", "2", "3", "4"} {
					snap, serr := st.Latest(ctx, model.KindUser, id, 0)
					So(serr, ShouldBeNil)
					So(snap.MatchesCount, ShouldEqual, 1)
					So(snap.MatchID, ShouldEqual, "m1")
				}
			})

			Convey("Then winners rank above losers", func() {
				winner, _ := st.Latest(ctx, model.KindUser, "1", 0)
				loser, _ := st.Latest(ctx, model.KindUser, "3", 0)
				So(winner.Ordinal, ShouldBeGreaterThan, loser.Ordinal)
			})

			Convey("Then both ad-hoc teams got rated", func() {
				teamA, serr := st.Latest(ctx, model.KindTeam, "1-2", 0)
				So(serr, ShouldBeNil)
				teamB, serr := st.Latest(ctx, model.KindTeam, "3-4", 0)
				So(serr, ShouldBeNil)
				So(teamA.Ordinal, ShouldBeGreaterThan, teamB.Ordinal)
			})

			Convey("Then the memento carries signed deltas for all six subjects", func() {
				mem, merr := e.MementoFor(ctx, "m1")
				So(merr, ShouldBeNil)
				So(len(mem.Entries), ShouldEqual, 6)
				for _, entry := range mem.Entries {
					switch entry.Subject.ID {
					case "1", "2", "1-2":
						So(entry.Delta, ShouldBeGreaterThan, 0)
					case "3", "4", "3-4":
						So(entry.Delta, ShouldBeLessThan, 0)
					}
				}
			})

			Convey("Then the outcome is locked", func() {
				got, gerr := st.Outcome(ctx, "m1")
				So(gerr, ShouldBeNil)
				So(got.Locked, ShouldBeTrue)
			})

			Convey("And reprocessing is a no-op, not an error", func() {
				again, aerr := e.ProcessMatch(ctx, "m1")
				So(aerr, ShouldBeNil)
				So(again, ShouldBeFalse)

				snap, _ := st.Latest(ctx, model.KindUser, "1", 0)
				So(snap.MatchesCount, ShouldEqual, 1)
			})
		})

		Convey("When a 1v1 match is processed", func() {
			mustProcess(ctx, t, e, outcome("m2", 0, []model.UserID{7}, []model.UserID{8}, model.SideB))

			Convey("Then no team subjects are created", func() {
				mem, merr := e.MementoFor(ctx, "m2")
				So(merr, ShouldBeNil)
				So(len(mem.Entries), ShouldEqual, 2)
				for _, entry := range mem.Entries {
					So(entry.Subject.Kind, ShouldEqual, model.KindUser)
				}
			})
		})

		Convey("When the match id is unknown", func() {
			_, err := e.ProcessMatch(ctx, "ghost")
			So(err, ShouldWrap, store.ErrNotFound)
		})
	})
}

func TestRecordOutcome(t *testing.T) {
	Convey("Given an engine", t, func() {
		ctx := context.Background()
		e, _ := testEngine(t)

		Convey("When the outcome has a user on both sides", func() {
			m := outcome("bad", 0, []model.UserID{1, 2}, []model.UserID{2, 3}, model.SideA)
			So(e.RecordOutcome(ctx, m), ShouldWrap, model.ErrInvalidOutcome)
		})

		Convey("When the season is not on the calendar", func() {
			m := outcome("bad-season", 9, []model.UserID{1}, []model.UserID{2}, model.SideA)
			So(e.RecordOutcome(ctx, m), ShouldWrap, model.ErrInvalidOutcome)
		})

		Convey("When a match id is reported twice", func() {
			m := outcome("dup", 0, []model.UserID{1}, []model.UserID{2}, model.SideA)
			So(e.RecordOutcome(ctx, m), ShouldBeNil)
			So(e.RecordOutcome(ctx, m), ShouldWrap, store.ErrConflict)
		})
	})
}

func TestCarryOver(t *testing.T) {
	Convey("Given a user rated in season 0", t, func() {
		ctx := context.Background()
		e, st := testEngine(t)

		mustProcess(ctx, t, e, outcome("s0", 0, []model.UserID{10}, []model.UserID{11}, model.SideA))

		Convey("When the same users play in season 1", func() {
			mustProcess(ctx, t, e, outcome("s1", 1, []model.UserID{10}, []model.UserID{11}, model.SideA))

			Convey("Then the season 1 prior carried mu, sigma and the count", func() {
				snap, err := st.Latest(ctx, model.KindUser, "10", 1)
				So(err, ShouldBeNil)
				So(snap.MatchesCount, ShouldEqual, 2)

				seasonZero, _ := st.Latest(ctx, model.KindUser, "10", 0)
				// A second straight win keeps moving mu up from the
				// carried value, not from the initial rating.
				So(snap.Mu, ShouldBeGreaterThan, seasonZero.Mu)
			})

			Convey("And season 0 history is untouched", func() {
				snap, err := st.Latest(ctx, model.KindUser, "10", 0)
				So(err, ShouldBeNil)
				So(snap.MatchesCount, ShouldEqual, 1)
				So(snap.MatchID, ShouldEqual, "s0")
			})
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given three users with confirmed standings", t, func() {
		ctx := context.Background()
		e, _ := testEngine(t)

		// 20 beats 21 twice, 21 beats 22 twice: strict ordering by skill.
		mustProcess(ctx, t, e, outcome("l1", 0, []model.UserID{20}, []model.UserID{21}, model.SideA))
		mustProcess(ctx, t, e, outcome("l2", 0, []model.UserID{20}, []model.UserID{21}, model.SideA))
		mustProcess(ctx, t, e, outcome("l3", 0, []model.UserID{21}, []model.UserID{22}, model.SideA))
		mustProcess(ctx, t, e, outcome("l4", 0, []model.UserID{21}, []model.UserID{22}, model.SideA))

		Convey("When the first page is queried", func() {
			entries, err := e.Leaderboard(ctx, 0, model.KindUser, 10, 0)
			So(err, ShouldBeNil)

			Convey("Then entries are ordered by ordinal with dense ranks", func() {
				So(len(entries), ShouldEqual, 3)
				So(entries[0].SubjectID, ShouldEqual, "20")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].Rank, ShouldEqual, 2)
				So(entries[2].Rank, ShouldEqual, 3)
				So(entries[0].Ordinal, ShouldBeGreaterThan, entries[1].Ordinal)
				So(entries[1].Ordinal, ShouldBeGreaterThan, entries[2].Ordinal)
			})
		})

		Convey("When paging with an offset", func() {
			entries, err := e.Leaderboard(ctx, 0, model.KindUser, 1, 1)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 1)
			So(entries[0].Rank, ShouldEqual, 2)
		})

		Convey("When more matches land after the cache warmed", func() {
			_, err := e.Leaderboard(ctx, 0, model.KindUser, 10, 0)
			So(err, ShouldBeNil)

			mustProcess(ctx, t, e, outcome("l5", 0, []model.UserID{20}, []model.UserID{21}, model.SideA))

			entries, err := e.Leaderboard(ctx, 0, model.KindUser, 10, 0)
			So(err, ShouldBeNil)

			Convey("Then the warm board reflects the new snapshots", func() {
				So(entries[0].SubjectID, ShouldEqual, "20")
				So(entries[0].MatchesCount, ShouldEqual, 3)
			})
		})

		Convey("When the season has no confirmed entries", func() {
			entries, err := e.Leaderboard(ctx, 1, model.KindUser, 10, 0)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})
}

func TestTierFor(t *testing.T) {
	Convey("Given confirmed and sub-floor subjects", t, func() {
		ctx := context.Background()
		e, _ := testEngine(t)

		// Users 30 and 31 reach the floor of two matches; 32 and 33 stay
		// below it with one match each.
		mustProcess(ctx, t, e, outcome("t1", 0, []model.UserID{30}, []model.UserID{31}, model.SideA))
		mustProcess(ctx, t, e, outcome("t2", 0, []model.UserID{30}, []model.UserID{31}, model.SideA))
		mustProcess(ctx, t, e, outcome("t3", 0, []model.UserID{32}, []model.UserID{33}, model.SideA))

		Convey("When a confirmed subject is looked up", func() {
			info, err := e.TierFor(ctx, model.KindUser, "30", 0)
			So(err, ShouldBeNil)
			So(info.Ranked, ShouldBeTrue)
			So(info.IsTentative, ShouldBeFalse)
			So(info.Tier, ShouldNotBeEmpty)
			So(info.Rank, ShouldEqual, 1)
			So(info.CohortSize, ShouldEqual, 2)
			So(info.Percentile, ShouldEqual, 50)
		})

		Convey("When a sub-floor subject is looked up", func() {
			info, err := e.TierFor(ctx, model.KindUser, "32", 0)
			So(err, ShouldBeNil)
			So(info.Ranked, ShouldBeTrue)
			So(info.IsTentative, ShouldBeTrue)
			So(info.Tier, ShouldNotBeEmpty)

			Convey("And the tentative cohort excludes confirmed subjects", func() {
				So(info.CohortSize, ShouldEqual, 2)
				So(info.Rank, ShouldEqual, 1)
			})
		})

		Convey("When the subject has never played this season", func() {
			info, err := e.TierFor(ctx, model.KindUser, "99", 0)
			So(err, ShouldBeNil)
			So(info.Ranked, ShouldBeFalse)
			So(info.Tier, ShouldBeEmpty)
		})

		Convey("And the sub-floor subject is absent from the leaderboard", func() {
			entries, err := e.Leaderboard(ctx, 0, model.KindUser, 10, 0)
			So(err, ShouldBeNil)
			for _, entry := range entries {
				So(entry.SubjectID, ShouldNotEqual, "32")
				So(entry.SubjectID, ShouldNotEqual, "33")
			}
		})
	})
}
