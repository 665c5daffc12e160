package identity_test

import (
	"errors"
	"testing"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/identity"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTeamIdentity(t *testing.T) {
	Convey("Given a set of user ids", t, func() {
		Convey("Then the identity is order independent", func() {
			a, err := identity.TeamIdentity([]model.UserID{3, 1, 2})
			So(err, ShouldBeNil)
			b, err := identity.TeamIdentity([]model.UserID{1, 2, 3})
			So(err, ShouldBeNil)
			So(a, ShouldEqual, b)
			So(a, ShouldEqual, "1-2-3")
		})

		Convey("And duplicates collapse to set membership", func() {
			id, err := identity.TeamIdentity([]model.UserID{7, 7, 9})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "7-9")
		})

		Convey("And a single user still encodes", func() {
			id, err := identity.TeamIdentity([]model.UserID{42})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "42")
		})

		Convey("And an empty set is rejected", func() {
			_, err := identity.TeamIdentity(nil)
			So(errors.Is(err, identity.ErrEmptyTeam), ShouldBeTrue)
		})

		Convey("And negative ids are rejected", func() {
			_, err := identity.TeamIdentity([]model.UserID{1, -2})
			So(errors.Is(err, identity.ErrBadUserID), ShouldBeTrue)
		})
	})
}

func TestUserIDs(t *testing.T) {
	Convey("Given canonical identities", t, func() {
		Convey("Then decoding inverts encoding", func() {
			in := []model.UserID{981, 12, 4508, 33}
			enc, err := identity.TeamIdentity(in)
			So(err, ShouldBeNil)
			out, err := identity.UserIDs(enc)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, []model.UserID{12, 33, 981, 4508})
		})
	})

	Convey("Given non-canonical or garbage identities", t, func() {
		for _, bad := range []string{"", "2-1", "1-1", "a-b", "1--2", "-1"} {
			Convey("Then "+bad+" is rejected", func() {
				_, err := identity.UserIDs(bad)
				So(errors.Is(err, identity.ErrBadIdentity), ShouldBeTrue)
			})
		}
	})
}
