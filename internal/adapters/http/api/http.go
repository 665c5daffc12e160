// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sendou-ink/sendou.ink-sub007/internal/app"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/model"
	"github.com/sendou-ink/sendou.ink-sub007/internal/domain/season"
)

// timeNow is swapped out in tests that pin the current season.
var timeNow = time.Now

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RecordOutcome stores a reported match outcome for processing.
	RecordOutcome(ctx context.Context, m *model.MatchOutcome) error

	// Read operations over seasonal standings.
	Leaderboard(ctx context.Context, seasonNth int, kind model.SubjectKind, limit, offset int) ([]model.Entry, error)
	TierFor(ctx context.Context, kind model.SubjectKind, subjectID string, seasonNth int) (app.TierInfo, error)

	// Memento audit trail.
	MementoFor(ctx context.Context, matchID string) (*model.Memento, error)
	AmendMementoDelta(ctx context.Context, matchID string, subject model.Subject, newDelta float64) error

	// Calendar resolves season ordinals and boundaries.
	Calendar() *season.Calendar
}

// Submitter queues match ids for asynchronous processing.
type Submitter interface {
	Submit(ctx context.Context, matchID string) error
	Len() int
}

// Server wires HTTP routes for the rating API.
type Server struct {
	healthHandler  *HealthHandler
	matchHandler   *MatchHandler
	boardHandler   *LeaderboardHandler
	tierHandler    *TierHandler
	mementoHandler *MementoHandler
	seasonHandler  *SeasonHandler
	statsHandler   *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, feed Submitter) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		matchHandler:   NewMatchHandler(deps, feed),
		boardHandler:   NewLeaderboardHandler(deps),
		tierHandler:    NewTierHandler(deps),
		mementoHandler: NewMementoHandler(deps),
		seasonHandler:  NewSeasonHandler(deps),
		statsHandler:   NewStatsHandler(feed),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.boardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/tier", MetricsMiddleware(s.tierHandler.HandleGetTier, "tier"))
	mux.HandleFunc("/memento/", MetricsMiddleware(s.mementoHandler.HandleMemento, "memento"))
	mux.HandleFunc("/seasons", MetricsMiddleware(s.seasonHandler.HandleGetSeasons, "seasons"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseKind maps the ?kind= query value to a subject kind. The user
// board is the default.
func parseKind(raw string) (model.SubjectKind, bool) {
	switch raw {
	case "", "user", "USER":
		return model.KindUser, true
	case "team", "TEAM":
		return model.KindTeam, true
	default:
		return "", false
	}
}
