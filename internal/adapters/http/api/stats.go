package api

import (
	"net/http"
)

// StatsHandler reports lightweight runtime numbers for dashboards.
type StatsHandler struct {
	feed Submitter
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(feed Submitter) *StatsHandler {
	return &StatsHandler{feed: feed}
}

type statsBody struct {
	QueueDepth int `json:"queue_depth"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, statsBody{QueueDepth: h.feed.Len()})
}
