package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tourism-forecast/internal/models"
	"tourism-forecast/pkg/database"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// ArrivalRepository mirrors pipeline outputs into Postgres
type ArrivalRepository interface {
	// Raw arrivals
	InsertArrivals(ctx context.Context, records []models.RawArrivalRecord) (int, error)
	CountArrivals(ctx context.Context) (int, error)

	// Training runs
	RecordTrainingRun(ctx context.Context, run *models.TrainingRun) error
	ListTrainingRuns(ctx context.Context, limit, offset int) ([]*models.TrainingRun, error)
	LatestTrainingRun(ctx context.Context) (*models.TrainingRun, error)

	HealthCheck(ctx context.Context) error
}

// arrivalRepository implements ArrivalRepository
type arrivalRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewArrivalRepository creates a new arrival repository
func NewArrivalRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ArrivalRepository {
	return &arrivalRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const insertArrivalQuery = `
	INSERT INTO tourism_arrivals (year, month, country, arrivals, source)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (year, month, country, source) DO NOTHING
`

// InsertArrivals inserts raw records in one transaction. Records already
// present are skipped; the number of inserted rows is returned.
func (r *arrivalRepository) InsertArrivals(ctx context.Context, records []models.RawArrivalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	inserted := 0
	err := r.db.WithTx(ctx, "insert_arrivals", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertArrivalQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i := range records {
			rec := &records[i]
			res, err := stmt.ExecContext(ctx, rec.Year, rec.Month, rec.Country, rec.Arrivals, rec.Source)
			if err != nil {
				return fmt.Errorf("failed to insert arrival %d-%02d %s: %w", rec.Year, rec.Month, rec.Country, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug(ctx, "[REPO_INSERT_ARRIVALS] Batch insert completed", logging.Fields{
		"count":       len(records),
		"inserted":    inserted,
		"duration_ms": time.Since(start).Milliseconds(),
		"stage":       "DB",
	})
	return inserted, nil
}

// CountArrivals returns the number of mirrored raw records
func (r *arrivalRepository) CountArrivals(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, "count_arrivals", &n, `SELECT COUNT(*) FROM tourism_arrivals`); err != nil {
		return 0, fmt.Errorf("failed to count arrivals: %w", err)
	}
	return n, nil
}

// RecordTrainingRun stores one successful training run
func (r *arrivalRepository) RecordTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	query := `
		INSERT INTO training_runs (run_id, artifact_id, kind, mae, rmse, mape, training_rows, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (artifact_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, "insert_training_run", query,
		run.RunID,
		run.ArtifactID,
		run.Kind,
		run.MAE,
		run.RMSE,
		run.MAPE,
		run.TrainingRows,
		run.Country,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record training run: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_TRAINING_RUN] Training run recorded", logging.Fields{
		"run_id":      run.RunID,
		"artifact_id": run.ArtifactID,
		"kind":        run.Kind,
		"stage":       "DB",
	})
	return nil
}

const selectTrainingRuns = `
	SELECT id, run_id, artifact_id, kind, mae, rmse, mape, training_rows, country, created_at
	FROM training_runs
`

// ListTrainingRuns returns runs newest first with pagination
func (r *arrivalRepository) ListTrainingRuns(ctx context.Context, limit, offset int) ([]*models.TrainingRun, error) {
	var runs []*models.TrainingRun
	err := r.db.SelectContext(ctx, "list_training_runs", &runs,
		selectTrainingRuns+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	return runs, nil
}

// LatestTrainingRun returns the most recent run
func (r *arrivalRepository) LatestTrainingRun(ctx context.Context) (*models.TrainingRun, error) {
	runs, err := r.ListTrainingRuns(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, &models.NotFoundError{Resource: "training_run", ID: "latest"}
	}
	return runs[0], nil
}

// HealthCheck performs a repository health check
func (r *arrivalRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
