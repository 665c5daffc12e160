package api

import (
	"net/http"
	"strconv"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps Dependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles
// GET /leaderboard?season=N&kind=user|team&limit=N&offset=N requests.
// Season defaults to the current season; limit and offset default to the
// engine's paging defaults.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	kind, ok := parseKind(q.Get("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_kind", ErrBadRequest)
		return
	}
	seasonNth, ok := h.seasonParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_season", ErrBadRequest)
		return
	}

	limit := intParam(q.Get("limit"), 0)
	offset := intParam(q.Get("offset"), 0)
	if limit < 0 || offset < 0 {
		writeError(w, http.StatusBadRequest, "bad_paging", ErrBadRequest)
		return
	}

	entries, err := h.deps.Leaderboard(r.Context(), seasonNth, kind, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) seasonParam(r *http.Request) (int, bool) {
	return seasonOrCurrent(h.deps, r.URL.Query().Get("season"))
}

// seasonOrCurrent resolves an explicit season ordinal, falling back to
// the season containing now, then to the most recently finished one.
func seasonOrCurrent(deps Dependencies, raw string) (int, bool) {
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	cal := deps.Calendar()
	if s, ok := cal.Current(timeNow()); ok {
		return s.Nth, true
	}
	if s, ok := cal.Previous(timeNow()); ok {
		return s.Nth, true
	}
	return 0, false
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
