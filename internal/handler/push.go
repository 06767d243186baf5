package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/daybreakapp/daybreak/internal/model"
	"github.com/daybreakapp/daybreak/internal/push"
	"github.com/daybreakapp/daybreak/internal/store"
	"github.com/daybreakapp/daybreak/internal/tracker"
)

// PushHandler serves the push subscription flow, the scheduling surface,
// and the notification action channel.
type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	scheduler *push.Scheduler
	tracker   *tracker.Tracker
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, sched *push.Scheduler, t *tracker.Tracker, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, scheduler: sched, tracker: t, logger: logger}
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Subscribe handles POST /api/push/subscribe. Registering a subscription
// also flips the push setting on.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.pushStore.UpsertSubscription(h.tracker.DeviceID(), req.Endpoint, req.P256dh, req.Auth)
	if err != nil {
		h.logger.Error("save subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	if err := h.tracker.SetPushEnabled(true); err != nil {
		h.logger.Error("enable push", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enable push")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions. Dropping all
// subscriptions for the device also flips the push setting off.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.pushStore.DeleteByDevice(h.tracker.DeviceID()); err != nil {
		h.logger.Error("delete subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscriptions")
		return
	}
	if err := h.tracker.SetPushEnabled(false); err != nil {
		h.logger.Error("disable push", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to disable push")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scheduleRequest struct {
	DeviceID string              `json:"deviceId"`
	Tag      string              `json:"tag"`
	Title    string              `json:"title"`
	Body     string              `json:"body"`
	SendAt   int64               `json:"sendAt"` // epoch ms
	URL      string              `json:"url"`
	Kind     string              `json:"kind"`
	Actions  []model.NotifAction `json:"actions,omitempty"`
}

// Schedule handles POST /api/push/schedule
func (h *PushHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DeviceID == "" || req.Tag == "" {
		writeError(w, http.StatusBadRequest, "deviceId and tag are required")
		return
	}

	err := h.scheduler.Schedule(push.Request{
		DeviceID: req.DeviceID,
		Tag:      req.Tag,
		Title:    req.Title,
		Body:     req.Body,
		SendAt:   time.UnixMilli(req.SendAt),
		URL:      req.URL,
		Kind:     req.Kind,
		Actions:  req.Actions,
	})
	if err != nil {
		h.logger.Error("schedule push", "tag", req.Tag, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cancelPrefixRequest struct {
	DeviceID string `json:"deviceId"`
	Prefix   string `json:"prefix"`
}

// CancelPrefix handles POST /api/push/cancel-prefix
func (h *PushHandler) CancelPrefix(w http.ResponseWriter, r *http.Request) {
	var req cancelPrefixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DeviceID == "" || req.Prefix == "" {
		writeError(w, http.StatusBadRequest, "deviceId and prefix are required")
		return
	}

	if err := h.scheduler.CancelByPrefix(req.DeviceID, req.Prefix); err != nil {
		h.logger.Error("cancel by prefix", "prefix", req.Prefix, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pending handles GET /api/push/pending
func (h *PushHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.pushStore.ListPending(h.tracker.DeviceID())
	if err != nil {
		h.logger.Error("list pending", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending")
		return
	}
	if pending == nil {
		pending = []model.ScheduledPush{}
	}
	writeJSON(w, http.StatusOK, pending)
}

type notifActionRequest struct {
	Action string `json:"action"`
	Data   struct {
		Kind string `json:"kind"`
	} `json:"data"`
}

// NotifAction handles POST /api/notifications/action, the channel a
// delivered notification's button click comes back through.
func (h *PushHandler) NotifAction(w http.ResponseWriter, r *http.Request) {
	var req notifActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Action != "snooze" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.tracker.HandleSnooze(req.Data.Kind); err != nil {
		if errors.Is(err, tracker.ErrNoSnoozesLeft) {
			writeError(w, http.StatusConflict, "no snoozes left")
			return
		}
		h.logger.Error("handle snooze", "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
