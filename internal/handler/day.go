package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/daybreakapp/daybreak/internal/daykey"
	"github.com/daybreakapp/daybreak/internal/model"
	"github.com/daybreakapp/daybreak/internal/tracker"
	ws "github.com/daybreakapp/daybreak/internal/websocket"
)

// DayHandler serves the day view and the event/morning log actions.
type DayHandler struct {
	tracker *tracker.Tracker
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewDayHandler(t *tracker.Tracker, hub *ws.Hub, logger *slog.Logger) *DayHandler {
	return &DayHandler{tracker: t, hub: hub, logger: logger}
}

type dayResponse struct {
	Day    string          `json:"day"`
	Record model.DayRecord `json:"record"`
}

// Today handles GET /api/days/today
func (h *DayHandler) Today(w http.ResponseWriter, r *http.Request) {
	key, record, err := h.tracker.Today()
	if err != nil {
		h.logger.Error("load today", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load today")
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{Day: key, Record: record})
}

// History handles GET /api/days?limit=N (default 7, newest first)
func (h *DayHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 7
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	days := h.tracker.History(limit)
	if days == nil {
		days = []tracker.DaySummary{}
	}
	writeJSON(w, http.StatusOK, days)
}

type logEventRequest struct {
	DelayMin int `json:"delay_min"`
}

type logEventResponse struct {
	Day  string               `json:"day"`
	Wake *tracker.WakeMessage `json:"wake,omitempty"`
}

// LogEvent handles POST /api/events/{name}
func (h *DayHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var wake *tracker.WakeMessage
	var err error

	switch name {
	case "imUp":
		var msg tracker.WakeMessage
		msg, err = h.tracker.LogImUp()
		if err == nil {
			wake = &msg
		}
	case "babyUp":
		err = h.tracker.LogBabyUp()
	case "napStart":
		err = h.tracker.LogNapStart()
	case "napEnd":
		var req logEventRequest
		if r.Body != nil {
			// Missing or malformed body falls back to the default delay.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		err = h.tracker.LogNapEnd(req.DelayMin)
	default:
		writeError(w, http.StatusBadRequest, "unknown event")
		return
	}

	if err != nil {
		if errors.Is(err, tracker.ErrAlreadyLogged) {
			writeError(w, http.StatusConflict, "already logged for today")
			return
		}
		h.logger.Error("log event", "event", name, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	day := daykey.Key(time.Now())
	h.hub.Broadcast(ws.Message{Type: "day_updated", Day: day})
	writeJSON(w, http.StatusOK, logEventResponse{Day: day, Wake: wake})
}

// LogMorning handles POST /api/morning/{item}
func (h *DayHandler) LogMorning(w http.ResponseWriter, r *http.Request) {
	item := r.PathValue("item")
	if err := h.tracker.LogMorning(item); err != nil {
		if errors.Is(err, tracker.ErrUnknownItem) {
			writeError(w, http.StatusBadRequest, "unknown morning item")
			return
		}
		h.logger.Error("log morning item", "item", item, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.hub.Broadcast(ws.Message{Type: "day_updated", Day: daykey.Key(time.Now())})
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/stats
func (h *DayHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
