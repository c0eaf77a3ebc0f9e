// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/mightytigers/matchday/internal/app"
	"github.com/mightytigers/matchday/internal/domain/model"
)

// ConfirmationsHandler handles attendance confirmation requests.
type ConfirmationsHandler struct {
	deps Dependencies
}

// NewConfirmationsHandler creates a new confirmations handler.
func NewConfirmationsHandler(deps Dependencies) *ConfirmationsHandler {
	return &ConfirmationsHandler{deps: deps}
}

// confirmationRequest mirrors the POST /confirmations schema. TS is
// optional; a missing timestamp gets the server's receive time.
type confirmationRequest struct {
	UpdateID     string `json:"update_id"`
	TeamID       string `json:"team_id"`
	MatchID      string `json:"match_id"`
	PlayerName   string `json:"player_name"`
	PlayerHandle string `json:"player_handle"`
	Value        string `json:"value"`
	TS           string `json:"ts"`
}

func (c confirmationRequest) validate() error {
	switch {
	case strings.TrimSpace(c.UpdateID) == "":
		return errors.New("missing update_id")
	case strings.TrimSpace(c.TeamID) == "":
		return errors.New("missing team_id")
	case strings.TrimSpace(c.MatchID) == "":
		return errors.New("missing match_id")
	case strings.TrimSpace(c.PlayerHandle) == "":
		return errors.New("missing player_handle")
	case strings.TrimSpace(c.Value) == "":
		return errors.New("missing value")
	}
	if c.TS != "" {
		if _, err := time.Parse(time.RFC3339, c.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// HandlePostConfirmation handles POST /confirmations requests.
func (h *ConfirmationsHandler) HandlePostConfirmation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_confirmation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req confirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var ts time.Time
	if req.TS != "" {
		ts, _ = time.Parse(time.RFC3339, req.TS)
	}

	accepted, duplicate, err := h.deps.Submit(r.Context(), model.ConfirmationEvent{
		UpdateID:     req.UpdateID,
		TeamID:       req.TeamID,
		MatchID:      req.MatchID,
		PlayerName:   req.PlayerName,
		PlayerHandle: req.PlayerHandle,
		Value:        req.Value,
		TS:           ts,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
