package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/intake"
	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/store"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
)

// matchRequest mirrors the JSON schema for POST /matches.
type matchRequest struct {
	MatchID string         `json:"match_id"`
	Season  int            `json:"season"`
	SideA   []model.UserID `json:"side_a"`
	SideB   []model.UserID `json:"side_b"`
	Winner  string         `json:"winner"`
}

func (m matchRequest) validate() error {
	switch {
	case strings.TrimSpace(m.MatchID) == "":
		return errors.New("missing match_id")
	case len(m.SideA) == 0:
		return errors.New("empty side_a")
	case len(m.SideB) == 0:
		return errors.New("empty side_b")
	case m.Winner != "A" && m.Winner != "B":
		return errors.New("winner must be A or B")
	}
	return nil
}

func (m matchRequest) outcome() *model.MatchOutcome {
	winner := model.SideA
	if m.Winner == "B" {
		winner = model.SideB
	}
	return &model.MatchOutcome{
		ID:        m.MatchID,
		SeasonNth: m.Season,
		SideA:     m.SideA,
		SideB:     m.SideB,
		Winner:    winner,
	}
}

type matchAck struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// MatchHandler accepts reported match outcomes.
type MatchHandler struct {
	deps Dependencies
	feed Submitter
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps Dependencies, feed Submitter) *MatchHandler {
	return &MatchHandler{deps: deps, feed: feed}
}

// HandlePostMatch handles POST /matches requests. A duplicate report is
// acknowledged rather than rejected: processing is idempotent end to end.
func (h *MatchHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	duplicate := false
	if err := h.deps.RecordOutcome(r.Context(), req.outcome()); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			duplicate = true
		case errors.Is(err, model.ErrInvalidOutcome):
			writeError(w, http.StatusBadRequest, "invalid_outcome", err)
			return
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
	}

	if err := h.feed.Submit(r.Context(), req.MatchID); err != nil {
		if errors.Is(err, intake.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusAccepted, matchAck{Status: "queued", Duplicate: duplicate})
}
