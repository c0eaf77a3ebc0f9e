// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/model"
	"github.com/mightytigers/matchday/internal/domain/team"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// EnsureTeam registers or refreshes a team registration.
	EnsureTeam(ctx context.Context, req model.EnsureTeam) (*team.Team, error)

	// NextMatch returns the current occurrence, creating one if needed.
	NextMatch(ctx context.Context, teamID string) (*match.Match, bool, error)

	// Submit runs one confirmation through dedupe and the async pipeline.
	Submit(ctx context.Context, event model.ConfirmationEvent) (accepted, duplicate bool, err error)

	// MatchStats returns the aggregated vote partitions for one match.
	MatchStats(ctx context.Context, teamID, matchID string) (match.Stats, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	teamsHandler         *TeamsHandler
	matchesHandler       *MatchesHandler
	confirmationsHandler *ConfirmationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		teamsHandler:         NewTeamsHandler(deps),
		matchesHandler:       NewMatchesHandler(deps),
		confirmationsHandler: NewConfirmationsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/teams/ensure", MetricsMiddleware(s.teamsHandler.HandleEnsureTeam, "teams_ensure"))
	mux.HandleFunc("/matches/next", MetricsMiddleware(s.matchesHandler.HandleNextMatch, "matches_next"))
	mux.HandleFunc("/matches/stats", MetricsMiddleware(s.matchesHandler.HandleMatchStats, "matches_stats"))
	mux.HandleFunc("/confirmations", MetricsMiddleware(s.confirmationsHandler.HandlePostConfirmation, "confirmations"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
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
