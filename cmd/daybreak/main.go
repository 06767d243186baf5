package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daybreakapp/daybreak/internal/backup"
	"github.com/daybreakapp/daybreak/internal/database"
	"github.com/daybreakapp/daybreak/internal/logging"
	"github.com/daybreakapp/daybreak/internal/push"
	"github.com/daybreakapp/daybreak/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("DAYBREAK_LOG_LEVEL"), os.Getenv("DAYBREAK_LOG_FORMAT"))

	port := os.Getenv("DAYBREAK_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DAYBREAK_DB_PATH")
	if dbPath == "" {
		dbPath = "daybreak.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("DAYBREAK_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("DAYBREAK_VAPID_PRIVATE_KEY"),
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		logger.Warn("VAPID keys not set, push reminders disabled")
	}

	backupCfg := backup.Config{
		Passphrase: os.Getenv("DAYBREAK_BACKUP_PASSPHRASE"),
	}

	srv, err := server.New(db, pushCfg, backupCfg, logger)
	if err != nil {
		logger.Error("init server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sched := srv.Scheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}
	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Daybreak running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
