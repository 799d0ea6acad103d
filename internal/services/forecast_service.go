package services

import (
	"context"
	"time"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/forecast"
	"tourism-forecast/internal/models"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// ModelInfo describes the artifact currently being served
type ModelInfo struct {
	ArtifactID    string                   `json:"artifact_id"`
	Kind          string                   `json:"kind"`
	CreatedAt     time.Time                `json:"created_at"`
	Country       string                   `json:"country,omitempty"`
	Metrics       models.Metrics           `json:"metrics"`
	Candidates    []models.CandidateResult `json:"candidates"`
	FeatureSchema []string                 `json:"feature_schema"`
	LastPeriod    models.Period            `json:"last_period"`
	TrainingRows  int                      `json:"training_rows"`
	HoldoutMonths int                      `json:"holdout_months"`
	Report        *models.MetricsReport    `json:"report,omitempty"`
}

// ForecastService serves forecasts from the current snapshot's artifact
type ForecastService struct {
	snapshots  *SnapshotStore
	forecaster *forecast.Forecaster
	cfg        config.ForecastConfig
}

// NewForecastService creates a forecast service
func NewForecastService(snapshots *SnapshotStore, cfg config.ForecastConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ForecastService {
	return &ForecastService{
		snapshots:  snapshots,
		forecaster: forecast.NewForecaster(cfg, logger, metricsCollector),
		cfg:        cfg,
	}
}

// DefaultHorizon is used when a request does not name one
func (s *ForecastService) DefaultHorizon() int {
	return s.cfg.DefaultHorizon
}

// Forecast predicts horizon months past the artifact's last period
func (s *ForecastService) Forecast(ctx context.Context, horizon int) (*models.ForecastResult, error) {
	return s.forecaster.Forecast(ctx, s.snapshots.Current().Artifact, horizon)
}

// ModelInfo returns the served artifact without its parameters and history
func (s *ForecastService) ModelInfo() (*ModelInfo, error) {
	snap := s.snapshots.Current()
	a := snap.Artifact
	if a == nil {
		return nil, &models.NotFoundError{Resource: "model artifact", ID: "current"}
	}
	return &ModelInfo{
		ArtifactID:    a.ID,
		Kind:          a.Kind,
		CreatedAt:     a.CreatedAt,
		Country:       a.Country,
		Metrics:       a.Metrics,
		Candidates:    a.Candidates,
		FeatureSchema: a.FeatureSchema,
		LastPeriod:    a.LastPeriod,
		TrainingRows:  a.TrainingRows,
		HoldoutMonths: a.HoldoutMonths,
		Report:        snap.Report,
	}, nil
}
