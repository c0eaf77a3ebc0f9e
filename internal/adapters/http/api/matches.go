// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mightytigers/matchday/internal/adapters/repository"
	"github.com/mightytigers/matchday/internal/domain/match"
)

// MatchesHandler handles match materialization and stats requests.
type MatchesHandler struct {
	deps Dependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Dependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// nextMatchRequest mirrors the POST /matches/next schema.
type nextMatchRequest struct {
	TeamID string `json:"team_id"`
}

type matchResponse struct {
	MatchID   string `json:"match_id"`
	TeamID    string `json:"team_id"`
	Date      string `json:"date"`
	IsNew     bool   `json:"is_new"`
	Completed bool   `json:"completed"`
}

// HandleNextMatch handles POST /matches/next requests.
func (h *MatchesHandler) HandleNextMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.next_match"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req nextMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.TeamID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	m, isNew, err := h.deps.NextMatch(r.Context(), req.TeamID)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			writeError(w, http.StatusNotFound, "team_not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, matchResponse{
		MatchID:   m.ID(),
		TeamID:    m.TeamID(),
		Date:      m.Date().UTC().Format(time.RFC3339),
		IsNew:     isNew,
		Completed: m.Completed(),
	})
}

// statsResponse mirrors the GET /matches/stats schema.
type statsResponse struct {
	TeamID  string      `json:"team_id"`
	MatchID string      `json:"match_id"`
	Stats   match.Stats `json:"stats"`
}

// HandleMatchStats handles GET /matches/stats?team_id=X&match_id=Y requests.
func (h *MatchesHandler) HandleMatchStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	teamID := r.URL.Query().Get("team_id")
	matchID := r.URL.Query().Get("match_id")
	if teamID == "" || matchID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	stats, err := h.deps.MatchStats(r.Context(), teamID, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match_not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{TeamID: teamID, MatchID: matchID, Stats: stats})
}
