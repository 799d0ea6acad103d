package modeling

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/features"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// RunRecorder receives a summary of every successful training run
type RunRecorder interface {
	RecordTrainingRun(ctx context.Context, run *models.TrainingRun) error
}

// Outcome is the in-memory result of a training run
type Outcome struct {
	Artifact *models.ModelArtifact
	Report   *models.MetricsReport
}

// Trainer fits, evaluates and selects models
type Trainer struct {
	cfg      config.ModelingConfig
	schema   []string
	recorder RunRecorder
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewTrainer creates a trainer. The feature schema comes from
// cfg.Features, or the default schema when none is configured.
func NewTrainer(cfg config.ModelingConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Trainer {
	schema := cfg.Features
	if len(schema) == 0 {
		schema = features.DefaultSchema
	}
	return &Trainer{
		cfg:     cfg,
		schema:  append([]string(nil), schema...),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// WithRecorder sets the optional training run recorder
func (t *Trainer) WithRecorder(r RunRecorder) *Trainer {
	t.recorder = r
	return t
}

// Run trains on the processed dataset at processedPath and saves the
// artifact and report. On any error nothing is written.
func (t *Trainer) Run(ctx context.Context, processedPath string, store *storage.ArtifactStore, runID string) (*Outcome, error) {
	timer := t.metrics.StageTimer("train")
	startTime := time.Now()

	t.logger.Info(ctx, "[TRAIN_START] Starting model training", logging.Fields{
		"run_id":     runID,
		"processed":  processedPath,
		"candidates": t.cfg.Candidates,
		"holdout":    t.cfg.HoldoutMonths,
		"seed":       t.cfg.Seed,
		"stage":      "INITIALIZATION",
	})

	records, err := storage.ReadProcessed(processedPath)
	if err != nil {
		t.metrics.RecordStageFailure("train")
		return nil, fmt.Errorf("failed to read processed dataset: %w", err)
	}

	out, err := t.Train(ctx, records, runID)
	if err != nil {
		t.metrics.RecordStageFailure("train")
		return nil, err
	}

	if err := store.Save(out.Artifact, out.Report); err != nil {
		t.metrics.RecordStageFailure("train")
		return nil, fmt.Errorf("failed to save model artifact: %w", err)
	}

	if t.recorder != nil {
		run := &models.TrainingRun{
			RunID:        runID,
			ArtifactID:   out.Artifact.ID,
			Kind:         out.Artifact.Kind,
			MAE:          out.Artifact.Metrics.MAE,
			RMSE:         out.Artifact.Metrics.RMSE,
			MAPE:         out.Artifact.Metrics.MAPE,
			TrainingRows: out.Artifact.TrainingRows,
			Country:      out.Artifact.Country,
			CreatedAt:    out.Artifact.CreatedAt,
		}
		if err := t.recorder.RecordTrainingRun(ctx, run); err != nil {
			t.logger.Warn(ctx, "[TRAIN_RECORD_ERROR] Failed to record training run", logging.Fields{
				"run_id": runID,
				"error":  err.Error(),
				"stage":  "MIRROR",
			})
		}
	}

	timer.ObserveDuration()
	t.logger.Info(ctx, "[TRAIN_COMPLETE] Model training completed", logging.Fields{
		"run_id":           runID,
		"artifact_id":      out.Artifact.ID,
		"selected":         out.Artifact.Kind,
		"mape":             out.Artifact.Metrics.MAPE,
		"rmse":             out.Artifact.Metrics.RMSE,
		"training_rows":    out.Artifact.TrainingRows,
		"artifact_path":    store.ArtifactPath(),
		"duration_seconds": time.Since(startTime).Seconds(),
		"stage":            "COMPLETE",
	})
	return out, nil
}

// Train runs the candidates on records without touching disk. The last
// HoldoutMonths periods are predicted recursively from training data only;
// the winner is then refit on the whole series.
func (t *Trainer) Train(ctx context.Context, records []models.ProcessedRecord, runID string) (*Outcome, error) {
	series := Aggregate(records, t.cfg.Country)
	h := t.cfg.HoldoutMonths
	if len(series) <= h {
		return nil, &models.InsufficientDataError{Stage: "modeling", Have: len(series), Need: h + t.cfg.MinTrainingRows}
	}

	if gaps := Gaps(series); len(gaps) > 0 {
		missing := describeGaps(gaps)
		return nil, &models.ValidationError{
			Field:   "series",
			Value:   missing,
			Message: "monthly series is not contiguous, missing " + missing,
		}
	}

	origin := series[0].Period
	builder, err := features.NewBuilder(t.schema, origin)
	if err != nil {
		return nil, fmt.Errorf("invalid feature schema: %w", err)
	}
	if need := builder.MaxLookback() + h; len(series) < need {
		return nil, &models.InsufficientDataError{Stage: "modeling", Have: len(series), Need: need}
	}

	train, holdout := series[:len(series)-h], series[len(series)-h:]
	trainHist := features.NewHistory(train)
	X, y := designMatrix(builder, train, trainHist)
	if len(X) < t.cfg.MinTrainingRows {
		return nil, &models.InsufficientDataError{Stage: "modeling", Have: len(X), Need: t.cfg.MinTrainingRows}
	}

	actual := make([]float64, len(holdout))
	targets := make([]models.Period, len(holdout))
	for i, pt := range holdout {
		actual[i] = pt.Value
		targets[i] = pt.Period
	}

	candidates := make([]models.CandidateResult, 0, len(t.cfg.Candidates))
	for _, kind := range t.cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := models.CandidateResult{Kind: kind}
		m, err := t.fit(kind, X, y)
		if err == nil {
			var pred []float64
			pred, err = PredictRecursive(m, builder, trainHist, targets)
			if err == nil {
				met := Evaluate(actual, pred)
				res.Metrics = &met
				t.metrics.ModelHoldoutMAPE.WithLabelValues(kind).Set(met.MAPE)
			}
		}
		if err != nil {
			res.Error = err.Error()
			t.logger.Warn(ctx, "[TRAIN_CANDIDATE_FAILED] Candidate model failed", logging.Fields{
				"kind":  kind,
				"error": err.Error(),
				"stage": "EVALUATION",
			})
		} else {
			t.logger.Info(ctx, "[TRAIN_CANDIDATE] Candidate evaluated", logging.Fields{
				"kind":  kind,
				"mae":   res.Metrics.MAE,
				"rmse":  res.Metrics.RMSE,
				"mape":  res.Metrics.MAPE,
				"stage": "EVALUATION",
			})
		}
		candidates = append(candidates, res)
	}

	kind, best, ok := Select(candidates)
	if !ok {
		return nil, fmt.Errorf("all %d candidate models failed", len(candidates))
	}

	fullHist := features.NewHistory(series)
	next := series[len(series)-1].Period.Next()
	if _, ok := builder.Row(next, fullHist); !ok {
		return nil, &models.InsufficientDataError{Stage: "modeling", Have: len(series), Need: builder.MaxLookback()}
	}
	fullX, fullY := designMatrix(builder, series, fullHist)
	final, err := t.fit(kind, fullX, fullY)
	if err != nil {
		return nil, fmt.Errorf("failed to refit %s on full series: %w", kind, err)
	}
	params, err := final.Params()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s parameters: %w", kind, err)
	}
	t.metrics.ModelTrainingRows.Set(float64(len(fullX)))

	now := time.Now().UTC()
	artifact := &models.ModelArtifact{
		ID:            uuid.NewString(),
		CreatedAt:     now,
		Kind:          kind,
		Params:        params,
		FeatureSchema: builder.Schema(),
		Metrics:       best,
		Candidates:    candidates,
		Country:       t.cfg.Country,
		Origin:        origin,
		LastPeriod:    series[len(series)-1].Period,
		History:       series,
		TrainingRows:  len(fullX),
		HoldoutMonths: h,
		Seed:          t.cfg.Seed,
	}
	report := &models.MetricsReport{
		RunID:         runID,
		ArtifactID:    artifact.ID,
		CreatedAt:     now,
		Selected:      kind,
		Metrics:       best,
		Candidates:    candidates,
		TrainingRange: models.PeriodRange{Start: train[0].Period, End: train[len(train)-1].Period},
		HoldoutRange:  models.PeriodRange{Start: holdout[0].Period, End: holdout[len(holdout)-1].Period},
		TrainingRows:  len(X),
		HoldoutRows:   len(holdout),
		Country:       t.cfg.Country,
		Seed:          t.cfg.Seed,
	}
	return &Outcome{Artifact: artifact, Report: report}, nil
}

func (t *Trainer) fit(kind string, X [][]float64, y []float64) (Model, error) {
	m, err := New(kind, t.cfg)
	if err != nil {
		return nil, err
	}
	if err := m.Fit(t.schema, X, y); err != nil {
		return nil, err
	}
	return m, nil
}

// designMatrix builds one row per point whose features are all available
func designMatrix(b *features.Builder, points []models.SeriesPoint, h features.History) ([][]float64, []float64) {
	X := make([][]float64, 0, len(points))
	y := make([]float64, 0, len(points))
	for _, pt := range points {
		row, ok := b.Row(pt.Period, h)
		if !ok {
			continue
		}
		X = append(X, row)
		y = append(y, pt.Value)
	}
	return X, y
}

// PredictRecursive predicts each target period in order, feeding every
// prediction back into a copy of history for the following lags.
// Predictions are clamped at zero.
func PredictRecursive(m Model, b *features.Builder, history features.History, targets []models.Period) ([]float64, error) {
	proj, err := NewProjection(b.Schema(), m.Features())
	if err != nil {
		return nil, err
	}
	h := make(features.History, len(history)+len(targets))
	for p, v := range history {
		h[p] = v
	}
	out := make([]float64, len(targets))
	for i, p := range targets {
		row, ok := b.Row(p, h)
		if !ok {
			return nil, fmt.Errorf("cannot build features for %s", p)
		}
		v := math.Max(m.Predict(proj.Apply(row)), 0)
		h[p] = v
		out[i] = v
	}
	return out, nil
}
