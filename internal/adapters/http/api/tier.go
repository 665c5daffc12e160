package api

import (
	"net/http"
	"strings"
)

// TierHandler handles tier lookups.
type TierHandler struct {
	deps Dependencies
}

// NewTierHandler creates a new tier handler.
func NewTierHandler(deps Dependencies) *TierHandler {
	return &TierHandler{deps: deps}
}

// HandleGetTier handles
// GET /tier?subject=ID&kind=user|team&season=N requests. A subject with
// no standing this season gets {"ranked": false}, not an error.
func (h *TierHandler) HandleGetTier(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	subjectID := strings.TrimSpace(q.Get("subject"))
	if subjectID == "" {
		writeError(w, http.StatusBadRequest, "missing_subject", ErrBadRequest)
		return
	}
	kind, ok := parseKind(q.Get("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_kind", ErrBadRequest)
		return
	}
	seasonNth, ok := seasonOrCurrent(h.deps, q.Get("season"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_season", ErrBadRequest)
		return
	}

	info, err := h.deps.TierFor(r.Context(), kind, subjectID, seasonNth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
