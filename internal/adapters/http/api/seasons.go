package api

import (
	"net/http"
	"time"
)

// SeasonHandler lists the season calendar.
type SeasonHandler struct {
	deps Dependencies
}

// NewSeasonHandler creates a new season handler.
func NewSeasonHandler(deps Dependencies) *SeasonHandler {
	return &SeasonHandler{deps: deps}
}

type seasonBody struct {
	Nth     int       `json:"nth"`
	Starts  time.Time `json:"starts"`
	Ends    time.Time `json:"ends"`
	Current bool      `json:"current"`
}

// HandleGetSeasons handles GET /seasons requests.
func (h *SeasonHandler) HandleGetSeasons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	cal := h.deps.Calendar()
	now := timeNow()
	out := make([]seasonBody, 0, cal.Len())
	for _, s := range cal.Seasons() {
		out = append(out, seasonBody{
			Nth:     s.Nth,
			Starts:  s.Starts,
			Ends:    s.Ends,
			Current: s.Contains(now),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
