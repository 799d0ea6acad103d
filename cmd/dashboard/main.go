package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"golang.org/x/text/language"

	"tourism-forecast/internal/app"
	"tourism-forecast/internal/dashboard"
	"tourism-forecast/internal/handlers"
	"tourism-forecast/internal/services"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
)

func main() {
	env := app.Load("tourism-dashboard")
	cfg, logger := env.Config, env.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to create data directories", logging.Fields{}, err)
	}

	artifacts := storage.NewArtifactStore(cfg.Paths.ArtifactFile(), cfg.Paths.ReportFile())
	snapshots := services.NewSnapshotStore(cfg.Paths.ProcessedFile(), artifacts, logger, env.Metrics)
	if err := snapshots.Reload(ctx); err != nil {
		logger.Warn(ctx, "[STARTUP_WARNING] Dashboard starts without data", logging.Fields{
			"error": err.Error(),
		})
	}
	go func() {
		if err := snapshots.Watch(ctx); err != nil {
			logger.Error(ctx, "[SNAPSHOT_WATCH_ERROR] File watching stopped", logging.Fields{}, err)
		}
	}()

	page := dashboard.NewHandler(
		services.NewAnalyticsService(snapshots),
		services.NewForecastService(snapshots, cfg.Forecast, logger, env.Metrics),
		language.English,
		logger,
		env.Metrics,
	)
	router := mux.NewRouter()
	page.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Dashboard.Host, cfg.Dashboard.Port),
		Handler:      handlers.RequestID(handlers.AccessLog(logger)(router)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[DASHBOARD_START] Dashboard listening", logging.Fields{
			"address": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "[DASHBOARD_ERROR] Dashboard failed", logging.Fields{}, err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "[SHUTDOWN_ERROR] Dashboard forced to shutdown", logging.Fields{}, err)
	}
	logger.Info(shutdownCtx, "[SHUTDOWN_COMPLETE] Dashboard stopped", logging.Fields{})
}
