package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/daybreakapp/daybreak/internal/backup"
	"github.com/daybreakapp/daybreak/internal/export"
	"github.com/daybreakapp/daybreak/internal/store"
	"github.com/daybreakapp/daybreak/internal/tracker"
	ws "github.com/daybreakapp/daybreak/internal/websocket"
)

// SettingsHandler serves user settings, S3 backup configuration, and backup
// actions.
type SettingsHandler struct {
	settings  *store.SettingsStore
	tracker   *tracker.Tracker
	backupMgr *backup.Manager
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, t *tracker.Tracker, bm *backup.Manager, hub *ws.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, tracker: t, backupMgr: bm, hub: hub, logger: logger}
}

type settingsResponse struct {
	PushEnabled bool   `json:"push_enabled"`
	DeviceID    string `json:"device_id"`
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse{
		PushEnabled: h.tracker.PushEnabled(),
		DeviceID:    h.tracker.DeviceID(),
	})
}

type updatePushRequest struct {
	Enabled bool `json:"enabled"`
}

// UpdatePush handles PUT /api/settings/push
func (h *SettingsHandler) UpdatePush(w http.ResponseWriter, r *http.Request) {
	var req updatePushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.tracker.SetPushEnabled(req.Enabled); err != nil {
		h.logger.Error("update push setting", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetS3 handles GET /api/settings/s3. The secret key is never echoed back.
func (h *SettingsHandler) GetS3(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetS3Settings()
	if err != nil {
		h.logger.Error("get s3 settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	delete(settings, "s3_secret_key")
	writeJSON(w, http.StatusOK, settings)
}

type s3SettingsRequest struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// UpdateS3 handles PUT /api/settings/s3
func (h *SettingsHandler) UpdateS3(w http.ResponseWriter, r *http.Request) {
	var req s3SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	pairs := map[string]string{
		"s3_endpoint":   req.Endpoint,
		"s3_bucket":     req.Bucket,
		"s3_region":     req.Region,
		"s3_access_key": req.AccessKey,
		"s3_secret_key": req.SecretKey,
	}
	for key, value := range pairs {
		if err := h.settings.Set(key, value); err != nil {
			h.logger.Error("save s3 setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}

	h.backupMgr.UpdateS3Config(backup.S3Config{
		Endpoint:  req.Endpoint,
		Bucket:    req.Bucket,
		Region:    req.Region,
		AccessKey: req.AccessKey,
		SecretKey: req.SecretKey,
	})
	w.WriteHeader(http.StatusNoContent)
}

// BackupStatus handles GET /api/backup/status
func (h *SettingsHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backupMgr.Status())
}

// BackupRun handles POST /api/backup/run
func (h *SettingsHandler) BackupRun(w http.ResponseWriter, r *http.Request) {
	if err := h.backupMgr.Run(r.Context()); err != nil {
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusOK, h.backupMgr.Status())
}

type restoreRequest struct {
	Key string `json:"key"`
}

// BackupRestore handles POST /api/backup/restore: fetches a snapshot from
// S3 and swaps it in, keeping the current device identity.
func (h *SettingsHandler) BackupRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	data, err := h.backupMgr.Fetch(r.Context(), req.Key)
	if err != nil {
		h.logger.Error("fetch backup", "key", req.Key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch backup")
		return
	}

	restored, err := export.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "backup is not a valid snapshot")
		return
	}
	if err := h.tracker.Replace(restored); err != nil {
		h.logger.Error("restore backup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to restore")
		return
	}

	h.hub.Broadcast(ws.Message{Type: "state_imported"})
	w.WriteHeader(http.StatusNoContent)
}
