// Package identity encodes ad-hoc team membership as a canonical string.
//
// The encoding is a total bijection between finite non-empty user-id sets
// and identity strings: member ids sorted ascending and joined with "-".
// Changing the encoding mid-season would orphan existing TEAM snapshots,
// so any future scheme must only apply from a season boundary onward.
package identity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
)

const separator = "-"

// TeamIdentity returns the canonical, order-independent identity string
// for a set of user ids. Duplicates collapse: the identity encodes set
// membership, not a roster list.
func TeamIdentity(userIDs []model.UserID) (string, error) {
	if len(userIDs) == 0 {
		return "", ErrEmptyTeam
	}

	uniq := make(map[model.UserID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id < 0 {
			return "", fmt.Errorf("%w: user id %d", ErrBadUserID, id)
		}
		uniq[id] = struct{}{}
	}

	ids := make([]int64, 0, len(uniq))
	for id := range uniq {
		ids = append(ids, int64(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, separator), nil
}

// UserIDs is the exact inverse of TeamIdentity.
func UserIDs(teamIdentity string) ([]model.UserID, error) {
	if teamIdentity == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrBadIdentity)
	}

	parts := strings.Split(teamIdentity, separator)
	out := make([]model.UserID, len(parts))
	prev := int64(-1)
	for i, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadIdentity, teamIdentity)
		}
		// Canonical form is strictly ascending; anything else was not
		// produced by TeamIdentity.
		if id <= prev {
			return nil, fmt.Errorf("%w: %q is not canonical", ErrBadIdentity, teamIdentity)
		}
		out[i] = model.UserID(id)
		prev = id
	}
	return out, nil
}
