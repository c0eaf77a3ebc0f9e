// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/mightytigers/matchday/internal/app"
	"github.com/mightytigers/matchday/internal/domain/model"
)

// TeamsHandler handles team registration requests.
type TeamsHandler struct {
	deps Dependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps Dependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

// ensureTeamRequest mirrors the POST /teams/ensure schema.
type ensureTeamRequest struct {
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
}

func (e ensureTeamRequest) validate() error {
	if strings.TrimSpace(e.TeamID) == "" {
		return errors.New("missing team_id")
	}
	return nil
}

type teamResponse struct {
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
}

// HandleEnsureTeam handles POST /teams/ensure requests.
func (h *TeamsHandler) HandleEnsureTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.ensure_team"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ensureTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	t, err := h.deps.EnsureTeam(r.Context(), model.EnsureTeam{
		TeamID:       req.TeamID,
		Name:         req.Name,
		ScheduleSpec: req.Schedule,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, teamResponse{
		TeamID:   t.ID(),
		Name:     t.Name(),
		Schedule: t.Schedule().String(),
	})
}
