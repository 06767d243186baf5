package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/daybreakapp/daybreak/internal/daykey"
	"github.com/daybreakapp/daybreak/internal/tracker"
	ws "github.com/daybreakapp/daybreak/internal/websocket"
)

// OutcomeHandler serves the three daily outcomes and their check-offs.
type OutcomeHandler struct {
	tracker *tracker.Tracker
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewOutcomeHandler(t *tracker.Tracker, hub *ws.Hub, logger *slog.Logger) *OutcomeHandler {
	return &OutcomeHandler{tracker: t, hub: hub, logger: logger}
}

type updateOutcomesRequest struct {
	Outcomes [3]string `json:"outcomes"`
}

// Update handles PUT /api/outcomes
func (h *OutcomeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateOutcomesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.tracker.SetOutcomes(req.Outcomes); err != nil {
		h.logger.Error("set outcomes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save outcomes")
		return
	}

	h.hub.Broadcast(ws.Message{Type: "day_updated", Day: daykey.Key(time.Now())})
	w.WriteHeader(http.StatusNoContent)
}

type toggleResponse struct {
	Celebrated bool `json:"celebrated"`
}

// Toggle handles POST /api/outcomes/{index}/toggle
func (h *OutcomeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	celebrated, err := h.tracker.ToggleOutcome(index)
	if err != nil {
		if errors.Is(err, tracker.ErrBadIndex) {
			writeError(w, http.StatusBadRequest, "outcome index out of range")
			return
		}
		h.logger.Error("toggle outcome", "index", index, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.hub.Broadcast(ws.Message{Type: "day_updated", Day: daykey.Key(time.Now())})
	writeJSON(w, http.StatusOK, toggleResponse{Celebrated: celebrated})
}

type suggestionResponse struct {
	Suggestion string `json:"suggestion"`
}

// Suggestion handles GET /api/suggestion
func (h *OutcomeHandler) Suggestion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, suggestionResponse{Suggestion: h.tracker.BuildSuggestion()})
}

// ApplySuggestion handles POST /api/outcomes/apply-suggestion
func (h *OutcomeHandler) ApplySuggestion(w http.ResponseWriter, r *http.Request) {
	applied, err := h.tracker.ApplySuggestion()
	if err != nil {
		if errors.Is(err, tracker.ErrNoSuggestion) {
			writeError(w, http.StatusNotFound, "no suggestion found")
			return
		}
		h.logger.Error("apply suggestion", "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.hub.Broadcast(ws.Message{Type: "day_updated", Day: daykey.Key(time.Now())})
	writeJSON(w, http.StatusOK, suggestionResponse{Suggestion: applied})
}
