package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidmill/config"
	HTTPAdapter "vidmill/internal/adapter/http"
	"vidmill/internal/adapter/identity"
	"vidmill/internal/adapter/storage/jsonfile"
	sqlitestore "vidmill/internal/adapter/storage/sqlite"
	"vidmill/internal/artifact"
	"vidmill/internal/infrastructure/logger"
	"vidmill/internal/port"
	"vidmill/internal/service"
	"vidmill/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	logger.Info.Printf("starting vidmill on port %d, backend=%s", cfg.Port, cfg.StoreBackend)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error.Printf("failed to create data directory: %v", err)
		os.Exit(1)
	}

	var adapter port.Persistence
	switch cfg.StoreBackend {
	case "sqlite":
		sqlStore, err := sqlitestore.NewStore(cfg.DataDir)
		if err != nil {
			logger.Error.Printf("failed to open sqlite store: %v", err)
			os.Exit(1)
		}
		defer func() { _ = sqlStore.Close() }()
		adapter = sqlStore
	default:
		adapter = jsonfile.NewStore(cfg.DataDir)
	}

	jobs, err := store.NewJobStore(adapter)
	if err != nil {
		logger.Error.Printf("failed to load job store: %v", err)
		os.Exit(1)
	}

	generator := artifact.NewGenerator(cfg.ShareBaseURL, cfg.ThumbBaseURL, cfg.SubtitleBaseURL)
	eventBus := service.NewEventBus()

	scheduler := service.NewScheduler(jobs, generator, eventBus, service.SchedulerConfig{
		QueueDelayMin:   cfg.QueueDelayMin,
		QueueDelayMax:   cfg.QueueDelayMax,
		ProcessDelayMin: cfg.ProcessDelayMin,
		ProcessDelayMax: cfg.ProcessDelayMax,
	}, nil)
	scheduler.Resume()

	lifecycle := service.NewLifecycleService(jobs, scheduler)

	users, err := identity.NewStaticStore(identity.DefaultAccounts(cfg.AdminPassword, cfg.UserPassword))
	if err != nil {
		logger.Error.Printf("failed to build user directory: %v", err)
		os.Exit(1)
	}
	authSvc := service.NewAuthService(users, cfg.AuthSecret)

	server := HTTPAdapter.NewServer(authSvc, lifecycle, eventBus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}

		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error.Printf("server failed: %v", err)
		os.Exit(1)
	}
}
