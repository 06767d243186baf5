package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/daybreakapp/daybreak/internal/backup"
	"github.com/daybreakapp/daybreak/internal/handler"
	"github.com/daybreakapp/daybreak/internal/middleware"
	"github.com/daybreakapp/daybreak/internal/push"
	"github.com/daybreakapp/daybreak/internal/store"
	"github.com/daybreakapp/daybreak/internal/tracker"
	ws "github.com/daybreakapp/daybreak/internal/websocket"
)

// Server wires the stores, the tracker, and the HTTP surface together.
type Server struct {
	db        *sql.DB
	hub       *ws.Hub
	tracker   *tracker.Tracker
	scheduler *push.Scheduler
	backupMgr *backup.Manager
	dayH      *handler.DayHandler
	outcomeH  *handler.OutcomeHandler
	pushH     *handler.PushHandler
	exportH   *handler.ExportHandler
	settingsH *handler.SettingsHandler
	logger    *slog.Logger
}

// New builds the full object graph. pushCfg may be empty, in which case the
// reminder scheduler and the push API are disabled.
func New(db *sql.DB, pushCfg push.Config, backupCfg backup.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	stateStore := store.NewStateStore(db, logger.With("component", "state_store"))
	pushStore := store.NewPushStore(db)
	settingsStore := store.NewSettingsStore(db)

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, logger.With("component", "push"))
	}

	state, err := stateStore.Load()
	if err != nil {
		return nil, err
	}

	// tracker.Scheduler is an interface; hand over a typed nil only when
	// the scheduler really exists.
	var sched tracker.Scheduler
	if pushSched != nil {
		sched = pushSched
	}
	trk := tracker.New(state, stateStore, sched, logger.With("component", "tracker"))

	// S3 settings persisted from a previous run take precedence over an
	// empty boot configuration.
	if s3, err := settingsStore.GetS3Settings(); err == nil && s3["s3_bucket"] != "" {
		backupCfg.S3 = backup.S3Config{
			Endpoint:  s3["s3_endpoint"],
			Bucket:    s3["s3_bucket"],
			Region:    s3["s3_region"],
			AccessKey: s3["s3_access_key"],
			SecretKey: s3["s3_secret_key"],
		}
	}
	backupLogger := logger.With("component", "backup")
	backupMgr := backup.NewManager(backupCfg, trk, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type: "backup_status",
			Extra: map[string]any{
				"state":       string(s.State),
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, backupLogger)

	var pushH *handler.PushHandler
	if pushSvc != nil {
		pushH = handler.NewPushHandler(pushStore, pushSvc, pushSched, trk, logger.With("component", "push_handler"))
	}

	return &Server{
		db:        db,
		hub:       hub,
		tracker:   trk,
		scheduler: pushSched,
		backupMgr: backupMgr,
		dayH:      handler.NewDayHandler(trk, hub, logger.With("component", "day")),
		outcomeH:  handler.NewOutcomeHandler(trk, hub, logger.With("component", "outcome")),
		pushH:     pushH,
		exportH:   handler.NewExportHandler(trk, hub, logger.With("component", "export")),
		settingsH: handler.NewSettingsHandler(settingsStore, trk, backupMgr, hub, logger.With("component", "settings")),
		logger:    logger,
	}, nil
}

// Scheduler returns the reminder scheduler, or nil when push is disabled.
func (s *Server) Scheduler() *push.Scheduler {
	return s.scheduler
}

// BackupManager returns the backup manager for lifecycle control.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Day + event routes
	mux.HandleFunc("GET /api/days/today", s.dayH.Today)
	mux.HandleFunc("GET /api/days", s.dayH.History)
	mux.HandleFunc("POST /api/events/{name}", s.dayH.LogEvent)
	mux.HandleFunc("POST /api/morning/{item}", s.dayH.LogMorning)
	mux.HandleFunc("GET /api/stats", s.dayH.Stats)

	// Outcome routes
	mux.HandleFunc("PUT /api/outcomes", s.outcomeH.Update)
	mux.HandleFunc("POST /api/outcomes/{index}/toggle", s.outcomeH.Toggle)
	mux.HandleFunc("GET /api/suggestion", s.outcomeH.Suggestion)
	mux.HandleFunc("POST /api/outcomes/apply-suggestion", s.outcomeH.ApplySuggestion)

	// Push routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Unsubscribe)
		mux.HandleFunc("POST /api/push/schedule", s.pushH.Schedule)
		mux.HandleFunc("POST /api/push/cancel-prefix", s.pushH.CancelPrefix)
		mux.HandleFunc("GET /api/push/pending", s.pushH.Pending)
		mux.HandleFunc("POST /api/notifications/action", s.pushH.NotifAction)
	}

	// Export / import
	mux.HandleFunc("GET /api/export.json", s.exportH.ExportJSON)
	mux.HandleFunc("GET /api/export.csv", s.exportH.ExportCSV)
	mux.HandleFunc("POST /api/import", s.exportH.Import)

	// Settings + backup
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings/push", s.settingsH.UpdatePush)
	mux.HandleFunc("GET /api/settings/s3", s.settingsH.GetS3)
	mux.HandleFunc("PUT /api/settings/s3", s.settingsH.UpdateS3)
	mux.HandleFunc("GET /api/backup/status", s.settingsH.BackupStatus)
	mux.HandleFunc("POST /api/backup/run", s.settingsH.BackupRun)
	mux.HandleFunc("POST /api/backup/restore", s.settingsH.BackupRestore)

	// Live updates
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}
