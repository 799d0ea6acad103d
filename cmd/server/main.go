package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourism-forecast/internal/app"
	"tourism-forecast/internal/handlers"
	"tourism-forecast/internal/services"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
)

func main() {
	env := app.Load("tourism-api")
	cfg, logger := env.Config, env.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[STARTUP] Starting tourism forecast API server", logging.Fields{
		"version":     app.Version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_dir":    cfg.Paths.DataDir,
		"database":    cfg.Database.Enabled,
	})

	repo, closeDB, err := env.OpenRepository(ctx)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer closeDB()

	artifacts := storage.NewArtifactStore(cfg.Paths.ArtifactFile(), cfg.Paths.ReportFile())
	snapshots := services.NewSnapshotStore(cfg.Paths.ProcessedFile(), artifacts, logger, env.Metrics)
	if err := snapshots.Reload(ctx); err != nil {
		logger.Warn(ctx, "[STARTUP_WARNING] Serving without data until the pipeline output is readable", logging.Fields{
			"error": err.Error(),
		})
	}
	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to create data directories", logging.Fields{}, err)
	}
	go func() {
		if err := snapshots.Watch(ctx); err != nil {
			logger.Error(ctx, "[SNAPSHOT_WATCH_ERROR] File watching stopped", logging.Fields{}, err)
		}
	}()

	var runs *services.TrainingRunService
	if repo != nil {
		runs = services.NewTrainingRunService(repo, logger, env.Metrics)
	}
	apiHandler := handlers.NewAPIHandler(
		snapshots,
		services.NewAnalyticsService(snapshots),
		services.NewForecastService(snapshots, cfg.Forecast, logger, env.Metrics),
		runs,
		logger,
		env.Metrics,
	)

	router := mux.NewRouter()
	apiHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.Wrap(router, cfg.Server, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(shutdownCtx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
