package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sendou-ink/sendou.ink-sub007/internal/adapters/store"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
)

// MementoHandler serves and amends per-match rating deltas.
type MementoHandler struct {
	deps Dependencies
}

// NewMementoHandler creates a new memento handler.
func NewMementoHandler(deps Dependencies) *MementoHandler {
	return &MementoHandler{deps: deps}
}

// amendRequest is the body for PATCH /memento/{matchID}: the one
// sanctioned correction, a single subject's delta.
type amendRequest struct {
	Kind      string  `json:"kind"`
	SubjectID string  `json:"subject_id"`
	Delta     float64 `json:"delta"`
}

// HandleMemento handles GET and PATCH /memento/{matchID} requests.
func (h *MementoHandler) HandleMemento(w http.ResponseWriter, r *http.Request) {
	matchID := strings.TrimPrefix(r.URL.Path, "/memento/")
	if matchID == "" || strings.Contains(matchID, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, matchID)
	case http.MethodPatch:
		h.amend(w, r, matchID)
	default:
		http.NotFound(w, r)
	}
}

func (h *MementoHandler) get(w http.ResponseWriter, r *http.Request, matchID string) {
	mem, err := h.deps.MementoFor(r.Context(), matchID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, mementoResponse(mem))
}

func (h *MementoHandler) amend(w http.ResponseWriter, r *http.Request, matchID string) {
	var req amendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	kind, ok := parseKind(req.Kind)
	if !ok || strings.TrimSpace(req.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "bad_subject", ErrBadRequest)
		return
	}

	subject := model.Subject{Kind: kind, ID: req.SubjectID}
	err := h.deps.AmendMementoDelta(r.Context(), matchID, subject, req.Delta)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mementoEntry is the wire shape of one delta row.
type mementoEntry struct {
	Kind      model.SubjectKind `json:"kind"`
	SubjectID string            `json:"subject_id"`
	Season    int               `json:"season"`
	Delta     float64           `json:"delta"`
}

type mementoBody struct {
	MatchID string         `json:"match_id"`
	Entries []mementoEntry `json:"entries"`
}

func mementoResponse(mem *model.Memento) mementoBody {
	out := mementoBody{MatchID: mem.MatchID, Entries: make([]mementoEntry, len(mem.Entries))}
	for i, e := range mem.Entries {
		out.Entries[i] = mementoEntry{
			Kind:      e.Subject.Kind,
			SubjectID: e.Subject.ID,
			Season:    e.SeasonNth,
			Delta:     e.Delta,
		}
	}
	return out
}
