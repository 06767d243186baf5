package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/daybreakapp/daybreak/internal/export"
	"github.com/daybreakapp/daybreak/internal/tracker"
	ws "github.com/daybreakapp/daybreak/internal/websocket"
)

// maxImportSize bounds uploaded import documents.
const maxImportSize = 10 << 20

// ExportHandler serves state export and import.
type ExportHandler struct {
	tracker *tracker.Tracker
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewExportHandler(t *tracker.Tracker, hub *ws.Hub, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{tracker: t, hub: hub, logger: logger}
}

// ExportJSON handles GET /api/export.json
func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	state, err := h.tracker.Snapshot()
	if err != nil {
		h.logger.Error("snapshot state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export")
		return
	}
	data, err := export.JSON(state)
	if err != nil {
		h.logger.Error("render json export", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=daybreak-backup-%d.json", time.Now().UnixMilli()))
	w.Write(data)
}

// ExportCSV handles GET /api/export.csv
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	state, err := h.tracker.Snapshot()
	if err != nil {
		h.logger.Error("snapshot state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=daybreak-export-%d.csv", time.Now().UnixMilli()))
	io.WriteString(w, export.CSV(state))
}

// Import handles POST /api/import. A document that fails to parse leaves
// the current state untouched; a parsed one replaces everything except the
// device identity.
func (h *ExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read import")
		return
	}

	imported, err := export.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "import failed")
		return
	}

	if err := h.tracker.Replace(imported); err != nil {
		h.logger.Error("replace state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to import")
		return
	}

	h.hub.Broadcast(ws.Message{Type: "state_imported"})
	w.WriteHeader(http.StatusNoContent)
}
