package identity

import "errors"

// Sentinel kinds for identity codec errors.
var (
	ErrEmptyTeam   = errors.New("empty team member set")
	ErrBadUserID   = errors.New("invalid user id")
	ErrBadIdentity = errors.New("invalid team identity")
)
