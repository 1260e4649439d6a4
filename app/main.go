package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feed-sieve/app/api"
	"github.com/lysyi3m/feed-sieve/app/cfg"
	"github.com/lysyi3m/feed-sieve/app/database"
	"github.com/lysyi3m/feed-sieve/app/feed"
	"github.com/lysyi3m/feed-sieve/app/notify"
	"github.com/lysyi3m/feed-sieve/app/rules"
	"github.com/lysyi3m/feed-sieve/app/tasks"
)

var logLevel = new(slog.LevelVar)

func main() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	appConfig, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appConfig == nil {
		return
	}

	if appConfig.Debug {
		logLevel.Set(slog.LevelDebug)
	}

	slog.Info("Starting Feed Sieve", "version", appConfig.Version, "port", appConfig.Port)

	file, err := rules.NewLoader(appConfig.RulesFile).Load()
	if err != nil {
		var configErr *rules.ConfigError
		if errors.As(err, &configErr) {
			slog.Error("Invalid rule configuration", "field", configErr.Field, "value", configErr.Value, "reason", configErr.Reason)
		} else {
			slog.Error("Failed to load rules", "file", appConfig.RulesFile, "error", err)
		}
		os.Exit(1)
	}
	slog.Info("Rules loaded",
		"file", appConfig.RulesFile,
		"structural_exclude", len(file.Rules.StructuralExclude),
		"structural_include", len(file.Rules.StructuralInclude),
		"content_include", len(file.Rules.ContentInclude),
		"feeds", len(file.Feeds))

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appConfig.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database schema ready", "version", version, "dirty", dirty)

	sessionID, err := database.NewSessionRepository(db).StartSession(context.Background())
	if err != nil {
		slog.Error("Failed to start session", "error", err)
		os.Exit(1)
	}
	slog.Info("Session started", "session", sessionID)

	feedRepo := database.NewFeedRepository(db, sessionID)
	itemRepo := database.NewItemRepository(db, sessionID)

	hub := notify.NewHub()
	classifier := feed.NewClassifier(file.Rules)
	pipeline := feed.NewPipeline(classifier, feed.NewCounters(), itemRepo, hub, file.Settings)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	scheduler := tasks.NewScheduler(file.Feeds, pipeline, feedRepo, httpClient, feed.NewParser())
	scheduler.Start()

	apiHandler := api.NewHandler(pipeline, classifier, feed.NewExtractor(file.Extractor),
		hub, itemRepo, feedRepo, scheduler, file.Feeds)

	// No write timeout: /api/events holds its response open for the session.
	httpServer := &http.Server{
		Addr:        ":" + appConfig.Port,
		Handler:     api.NewServer(apiHandler, appConfig.APIAccessKey),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Close()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()

	snapshot := pipeline.Counters()
	slog.Info("Shutdown complete", "processed", snapshot.Processed, "suppressed", snapshot.Suppressed)
}
