// Package forecast produces future monthly arrival predictions from a
// persisted model artifact.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/features"
	"tourism-forecast/internal/modeling"
	"tourism-forecast/internal/models"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

var zScores = map[float64]float64{
	0.90: 1.645,
	0.95: 1.96,
	0.99: 2.576,
}

// Forecaster runs inference against an artifact
type Forecaster struct {
	cfg     config.ForecastConfig
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewForecaster creates a forecaster
func NewForecaster(cfg config.ForecastConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Forecaster {
	return &Forecaster{cfg: cfg, logger: logger, metrics: metricsCollector}
}

// Forecast predicts horizon months following the artifact's last observed
// period. The artifact's feature schema is checked before any inference; a
// mismatch returns a SchemaMismatchError and no points.
func (f *Forecaster) Forecast(ctx context.Context, artifact *models.ModelArtifact, horizon int) (*models.ForecastResult, error) {
	res, err := f.forecast(artifact, horizon)
	if err != nil {
		outcome := "error"
		switch {
		case models.IsSchemaMismatch(err):
			outcome = "schema_mismatch"
		case models.IsValidation(err):
			outcome = "invalid"
		}
		f.metrics.ForecastsTotal.WithLabelValues(outcome).Inc()
		f.logger.Warn(ctx, "[FORECAST_FAILED] Forecast rejected", logging.Fields{
			"horizon": horizon,
			"outcome": outcome,
			"error":   err.Error(),
			"stage":   "INFERENCE",
		})
		return nil, err
	}
	f.metrics.ForecastsTotal.WithLabelValues("ok").Inc()
	f.logger.Debug(ctx, "[FORECAST_COMPLETE] Forecast generated", logging.Fields{
		"artifact_id": res.ArtifactID,
		"kind":        res.Kind,
		"horizon":     horizon,
		"stage":       "INFERENCE",
	})
	return res, nil
}

func (f *Forecaster) forecast(artifact *models.ModelArtifact, horizon int) (*models.ForecastResult, error) {
	if artifact == nil {
		return nil, &models.NotFoundError{Resource: "model artifact", ID: "current"}
	}
	if horizon < 1 || horizon > f.cfg.MaxHorizon {
		return nil, &models.ValidationError{
			Field:   "horizon",
			Value:   fmt.Sprint(horizon),
			Message: fmt.Sprintf("must be between 1 and %d", f.cfg.MaxHorizon),
		}
	}
	z, ok := zScores[f.cfg.ConfidenceLevel]
	if !ok {
		return nil, &models.ValidationError{
			Field:   "confidence_level",
			Value:   fmt.Sprint(f.cfg.ConfidenceLevel),
			Message: "must be one of 0.90, 0.95, 0.99",
		}
	}

	builder, err := features.NewBuilder(artifact.FeatureSchema, artifact.Origin)
	if err != nil {
		return nil, err
	}
	model, err := modeling.Restore(artifact.Kind, artifact.Params)
	if err != nil {
		return nil, err
	}
	if missing := features.Missing(artifact.FeatureSchema, model.Features()); len(missing) > 0 {
		return nil, &models.SchemaMismatchError{
			Missing: missing,
			Reason:  "artifact schema lacks features required by the " + artifact.Kind + " model",
		}
	}
	if len(artifact.History) == 0 {
		return nil, &models.InsufficientDataError{Stage: "forecast", Have: 0, Need: builder.MaxLookback()}
	}

	targets := make([]models.Period, horizon)
	for i := range targets {
		targets[i] = artifact.LastPeriod.Add(i + 1)
	}
	preds, err := modeling.PredictRecursive(model, builder, features.NewHistory(artifact.History), targets)
	if err != nil {
		return nil, fmt.Errorf("forecast inference failed: %w", err)
	}

	points := make([]models.ForecastPoint, horizon)
	for i, p := range targets {
		width := z * artifact.Metrics.RMSE * math.Sqrt(float64(i+1))
		points[i] = models.ForecastPoint{
			Period:    p,
			Predicted: preds[i],
			Lower:     math.Max(preds[i]-width, 0),
			Upper:     preds[i] + width,
		}
	}

	return &models.ForecastResult{
		ArtifactID:      artifact.ID,
		Kind:            artifact.Kind,
		Country:         artifact.Country,
		Horizon:         horizon,
		ConfidenceLevel: f.cfg.ConfidenceLevel,
		GeneratedAt:     time.Now().UTC(),
		Points:          points,
	}, nil
}
