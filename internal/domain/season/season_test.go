package season_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/season"
	. "github.com/smartystreets/goconvey/convey"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func testCalendar() *season.Calendar {
	// Three month-long seasons with a one-day gap between 2 and 3.
	c, err := season.NewCalendar([]season.Season{
		{Nth: 1, Starts: day(0), Ends: day(30)},
		{Nth: 2, Starts: day(30), Ends: day(60)},
		{Nth: 3, Starts: day(61), Ends: day(90)},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func TestCalendarLookups(t *testing.T) {
	Convey("Given a three-season calendar", t, func() {
		c := testCalendar()

		Convey("When an instant falls inside a season", func() {
			s, ok := c.SeasonContaining(day(45))
			So(ok, ShouldBeTrue)
			So(s.Nth, ShouldEqual, 2)

			Convey("Then Current agrees", func() {
				cur, ok := c.Current(day(45))
				So(ok, ShouldBeTrue)
				So(cur.Nth, ShouldEqual, 2)
			})
		})

		Convey("When an instant falls in the gap between seasons", func() {
			_, ok := c.SeasonContaining(day(60))
			So(ok, ShouldBeFalse)

			Convey("Then Previous is the season that just ended", func() {
				p, ok := c.Previous(day(60))
				So(ok, ShouldBeTrue)
				So(p.Nth, ShouldEqual, 2)
			})

			Convey("And Next is the upcoming season", func() {
				n, ok := c.Next(day(60))
				So(ok, ShouldBeTrue)
				So(n.Nth, ShouldEqual, 3)
			})
		})

		Convey("When looking up by ordinal", func() {
			s, err := c.ByNth(3)
			So(err, ShouldBeNil)
			So(s.Starts, ShouldEqual, day(61))

			_, err = c.ByNth(99)
			So(errors.Is(err, season.ErrNotFound), ShouldBeTrue)
		})

		Convey("When asking before the first season", func() {
			_, ok := c.Previous(day(-1))
			So(ok, ShouldBeFalse)
			So(c.AllFinished(day(-1)), ShouldBeEmpty)
		})

		Convey("When listing finished seasons mid-ladder", func() {
			fin := c.AllFinished(day(65))
			So(fin, ShouldHaveLength, 2)
			So(fin[0].Nth, ShouldEqual, 1)
			So(fin[1].Nth, ShouldEqual, 2)
		})

		Convey("When listing finished seasons after the last one", func() {
			So(c.AllFinished(day(400)), ShouldHaveLength, 3)
		})

		Convey("Then the start is inclusive and the end exclusive", func() {
			s, ok := c.SeasonContaining(day(30))
			So(ok, ShouldBeTrue)
			So(s.Nth, ShouldEqual, 2)
		})
	})
}

func TestCalendarValidation(t *testing.T) {
	Convey("Given malformed season lists", t, func() {
		Convey("When seasons overlap", func() {
			_, err := season.NewCalendar([]season.Season{
				{Nth: 1, Starts: day(0), Ends: day(40)},
				{Nth: 2, Starts: day(30), Ends: day(60)},
			})
			So(errors.Is(err, season.ErrBadCalendar), ShouldBeTrue)
		})

		Convey("When a season has zero length", func() {
			_, err := season.NewCalendar([]season.Season{
				{Nth: 1, Starts: day(10), Ends: day(10)},
			})
			So(errors.Is(err, season.ErrBadCalendar), ShouldBeTrue)
		})

		Convey("When ordinals repeat", func() {
			_, err := season.NewCalendar([]season.Season{
				{Nth: 1, Starts: day(0), Ends: day(10)},
				{Nth: 1, Starts: day(10), Ends: day(20)},
			})
			So(errors.Is(err, season.ErrBadCalendar), ShouldBeTrue)
		})

		Convey("When ordinals run backwards in time", func() {
			_, err := season.NewCalendar([]season.Season{
				{Nth: 2, Starts: day(0), Ends: day(10)},
				{Nth: 1, Starts: day(10), Ends: day(20)},
			})
			So(errors.Is(err, season.ErrBadCalendar), ShouldBeTrue)
		})
	})
}
