// Package app holds the start-up wiring shared by the binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/repository"
	"tourism-forecast/pkg/database"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// Version is reported by every binary at start-up
const Version = "1.0.0"

// MetricsNamespace prefixes every Prometheus metric
const MetricsNamespace = "tourism_forecast"

// Env is the configuration, logger and metrics of one process
type Env struct {
	Config  *config.Config
	Logger  *logging.StructuredLogger
	Metrics *metrics.Collector
}

// Load reads configuration and builds the logger for service. Configuration
// errors are printed and exit the process, as no logger exists yet.
func Load(service string) *Env {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return New(service, cfg)
}

// New builds an Env from an already loaded configuration
func New(service string, cfg *config.Config) *Env {
	return &Env{
		Config:  cfg,
		Logger:  NewLogger(service, cfg.Logging),
		Metrics: metrics.NewCollector(MetricsNamespace),
	}
}

// NewLogger creates the logger described by the logging section
func NewLogger(service string, cfg config.LoggingConfig) *logging.StructuredLogger {
	level := logging.ParseLevel(cfg.Level)
	if cfg.Format == "console" {
		return logging.NewConsoleLogger(service, Version, level)
	}
	return logging.NewStructuredLogger(service, Version, level)
}

// OpenRepository connects the database mirror when it is enabled. The
// repository is nil when it is disabled; the returned func closes the pool.
func (e *Env) OpenRepository(ctx context.Context) (repository.ArrivalRepository, func(), error) {
	if !e.Config.Database.Enabled {
		return nil, func() {}, nil
	}
	db, err := database.NewPostgresDB(ctx, database.FromSettings(e.Config.Database), e.Logger, e.Metrics)
	if err != nil {
		return nil, func() {}, err
	}
	return repository.NewArrivalRepository(db, e.Logger, e.Metrics), func() { db.Close() }, nil
}
