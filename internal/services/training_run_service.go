package services

import (
	"context"
	"fmt"

	"tourism-forecast/internal/models"
	"tourism-forecast/internal/repository"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// TrainingRunService lists training runs mirrored to the database
type TrainingRunService struct {
	repo    repository.ArrivalRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTrainingRunService creates a new training run service
func NewTrainingRunService(repo repository.ArrivalRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *TrainingRunService {
	return &TrainingRunService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// List returns runs newest first
func (s *TrainingRunService) List(ctx context.Context, limit, offset int) ([]*models.TrainingRun, error) {
	if limit < 1 || limit > 1000 {
		return nil, &models.ValidationError{Field: "limit", Value: fmt.Sprint(limit), Message: "must be between 1 and 1000"}
	}
	if offset < 0 {
		return nil, &models.ValidationError{Field: "offset", Value: fmt.Sprint(offset), Message: "must be non-negative"}
	}
	return s.repo.ListTrainingRuns(ctx, limit, offset)
}

// MirrorStatus summarizes the database mirror
type MirrorStatus struct {
	MirroredArrivals int                 `json:"mirrored_arrivals"`
	LatestRun        *models.TrainingRun `json:"latest_run,omitempty"`
}

// Status returns the mirrored record count and the latest recorded run.
// LatestRun is nil when no run was recorded yet.
func (s *TrainingRunService) Status(ctx context.Context) (*MirrorStatus, error) {
	n, err := s.repo.CountArrivals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count mirrored arrivals: %w", err)
	}
	status := &MirrorStatus{MirroredArrivals: n}

	run, err := s.repo.LatestTrainingRun(ctx)
	switch {
	case err == nil:
		status.LatestRun = run
	case models.IsNotFound(err):
	default:
		return nil, fmt.Errorf("failed to load latest training run: %w", err)
	}
	return status, nil
}

// HealthCheck reports database reachability
func (s *TrainingRunService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
