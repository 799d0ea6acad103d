package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
	"tourism-forecast/migrations"
	"tourism-forecast/pkg/database"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// openTestRepository connects to the database described by the TOURISM_DATABASE_*
// environment. Tests are skipped unless TOURISM_TEST_DATABASE=1.
func openTestRepository(t *testing.T) ArrivalRepository {
	t.Helper()
	if os.Getenv("TOURISM_TEST_DATABASE") != "1" {
		t.Skip("set TOURISM_TEST_DATABASE=1 to run database tests")
	}

	cfg, err := config.LoadFrom("")
	require.NoError(t, err)

	ctx := context.Background()
	m := metrics.NewCollector("test_repository")
	db, err := database.NewPostgresDB(ctx, database.FromSettings(cfg.Database), logging.Nop(), m)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := migrations.Load("up")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "migrate", schema)
	require.NoError(t, err)

	return NewArrivalRepository(db, logging.Nop(), m)
}

func TestInsertArrivals_SkipsExisting(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	v := 1200.0
	source := "test:" + uuid.NewString()
	records := []models.RawArrivalRecord{
		{Year: 2024, Month: 1, Country: "India", Arrivals: &v, Source: source},
		{Year: 2024, Month: 2, Country: "India", Source: source},
	}

	n, err := repo.InsertArrivals(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.InsertArrivals(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.InsertArrivals(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTrainingRuns_RecordAndList(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	run := &models.TrainingRun{
		RunID:        uuid.NewString(),
		ArtifactID:   uuid.NewString(),
		Kind:         models.KindRidge,
		MAE:          10,
		RMSE:         12,
		MAPE:         4.5,
		TrainingRows: 60,
		CreatedAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, repo.RecordTrainingRun(ctx, run))
	// same artifact twice is a no-op
	require.NoError(t, repo.RecordTrainingRun(ctx, run))

	latest, err := repo.LatestTrainingRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ArtifactID, latest.ArtifactID)
	assert.Equal(t, run.Kind, latest.Kind)

	runs, err := repo.ListTrainingRuns(ctx, 10, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}
