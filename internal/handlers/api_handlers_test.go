package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/services"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

var testMetrics = metrics.NewCollector("test_handlers")

type fixture struct {
	cfg       *config.Config
	snapshots *services.SnapshotStore
	router    *mux.Router
}

// newFixture runs the pipeline on synthetic data and serves its outputs
func newFixture(t *testing.T, runPipeline bool) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.ResolvePaths()
	cfg.Collector.StartYear = 2021
	cfg.Collector.EndYear = 2024
	cfg.Collector.EndMonth = 12
	cfg.Collector.Countries = []string{"India", "China"}
	cfg.Modeling.GBT.Trees = 20

	ctx := context.Background()
	pipeline := services.NewPipelineService(cfg, nil, logging.Nop(), testMetrics)
	if runPipeline {
		_, err := pipeline.Run(ctx, nil)
		require.NoError(t, err)
	}

	snapshots := services.NewSnapshotStore(cfg.Paths.ProcessedFile(), pipeline.Artifacts(), logging.Nop(), testMetrics)
	require.NoError(t, snapshots.Reload(ctx))

	h := NewAPIHandler(
		snapshots,
		services.NewAnalyticsService(snapshots),
		services.NewForecastService(snapshots, cfg.Forecast, logging.Nop(), testMetrics),
		nil,
		logging.Nop(),
		testMetrics,
	)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return &fixture{cfg: cfg, snapshots: snapshots, router: router}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAPI_Endpoints(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		target string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/overview", http.StatusOK},
		{"/api/monthly-trends", http.StatusOK},
		{"/api/monthly-trends?year=2023", http.StatusOK},
		{"/api/monthly-trends?year=abc", http.StatusBadRequest},
		{"/api/country-analysis", http.StatusOK},
		{"/api/country-analysis?country=india", http.StatusOK},
		{"/api/country-analysis?country=Atlantis", http.StatusNotFound},
		{"/api/seasonal-analysis", http.StatusOK},
		{"/api/top-countries?limit=5&year=2024", http.StatusOK},
		{"/api/top-countries?limit=0", http.StatusBadRequest},
		{"/api/year-comparison", http.StatusOK},
		{"/api/regional-analysis", http.StatusOK},
		{"/api/growth-rates", http.StatusOK},
		{"/api/available-years", http.StatusOK},
		{"/api/available-countries", http.StatusOK},
		{"/api/forecast", http.StatusOK},
		{"/api/forecast?horizon=3", http.StatusOK},
		{"/api/forecast?horizon=0", http.StatusBadRequest},
		{"/api/forecast?horizon=61", http.StatusBadRequest},
		{"/api/model", http.StatusOK},
		{"/api/training-runs", http.StatusNotFound},
		{"/api/docs/openapi.json", http.StatusOK},
		{"/api/docs", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := f.get(t, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status >= 400 && tt.target != "/api/training-runs" {
				var e ErrorResponse
				decode(t, rec, &e)
				assert.Equal(t, tt.status, e.Code)
				assert.NotEmpty(t, e.Message)
			}
		})
	}
}

func TestAPI_ForecastBody(t *testing.T) {
	f := newFixture(t, true)
	rec := f.get(t, "/api/forecast?horizon=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.ForecastResult
	decode(t, rec, &res)
	require.Len(t, res.Points, 3)
	assert.Equal(t, models.Period{Year: 2025, Month: 1}, res.Points[0].Period)
	assert.Equal(t, 0.95, res.ConfidenceLevel)
}

func TestAPI_ForecastSchemaMismatch(t *testing.T) {
	f := newFixture(t, true)
	store := storage.NewArtifactStore(f.cfg.Paths.ArtifactFile(), f.cfg.Paths.ReportFile())
	artifact, err := store.LoadArtifact()
	require.NoError(t, err)
	artifact.FeatureSchema = append(artifact.FeatureSchema, "weather_index")
	require.NoError(t, storage.WriteJSON(f.cfg.Paths.ArtifactFile(), artifact))
	require.NoError(t, f.snapshots.Reload(context.Background()))

	rec := f.get(t, "/api/forecast?horizon=3")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var e ErrorResponse
	decode(t, rec, &e)
	assert.Contains(t, e.Message, "weather_index")
}

func TestAPI_NoData(t *testing.T) {
	f := newFixture(t, false)

	rec := f.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	decode(t, rec, &health)
	assert.Equal(t, 0, health.Records)
	assert.False(t, health.HasModel)

	for _, target := range []string{"/api/overview", "/api/forecast", "/api/model"} {
		assert.Equal(t, http.StatusNotFound, f.get(t, target).Code, target)
	}
}

// memRepository serves training runs from memory
type memRepository struct {
	arrivals int
	runs     []*models.TrainingRun
	down     error
}

func (m *memRepository) InsertArrivals(_ context.Context, records []models.RawArrivalRecord) (int, error) {
	m.arrivals += len(records)
	return len(records), nil
}

func (m *memRepository) CountArrivals(context.Context) (int, error) { return m.arrivals, nil }

func (m *memRepository) RecordTrainingRun(_ context.Context, run *models.TrainingRun) error {
	m.runs = append([]*models.TrainingRun{run}, m.runs...)
	return nil
}

func (m *memRepository) ListTrainingRuns(_ context.Context, limit, offset int) ([]*models.TrainingRun, error) {
	if offset >= len(m.runs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.runs) {
		end = len(m.runs)
	}
	return m.runs[offset:end], nil
}

func (m *memRepository) LatestTrainingRun(context.Context) (*models.TrainingRun, error) {
	if len(m.runs) == 0 {
		return nil, &models.NotFoundError{Resource: "training_run", ID: "latest"}
	}
	return m.runs[0], nil
}

func (m *memRepository) HealthCheck(context.Context) error { return m.down }

func mirrorRouter(f *fixture, repo *memRepository) *mux.Router {
	h := NewAPIHandler(
		f.snapshots,
		services.NewAnalyticsService(f.snapshots),
		services.NewForecastService(f.snapshots, f.cfg.Forecast, logging.Nop(), testMetrics),
		services.NewTrainingRunService(repo, logging.Nop(), testMetrics),
		logging.Nop(),
		testMetrics,
	)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestAPI_HealthReportsMirror(t *testing.T) {
	f := newFixture(t, false)
	repo := &memRepository{arrivals: 96}

	tests := []struct {
		name       string
		runs       []*models.TrainingRun
		down       error
		status     int
		wantMirror bool
		latestID   string
	}{
		{"no runs yet", nil, nil, http.StatusOK, true, ""},
		{"latest run", []*models.TrainingRun{{RunID: "r2", Kind: models.KindRidge}, {RunID: "r1"}}, nil, http.StatusOK, true, "r2"},
		{"database down", nil, errors.New("connection refused"), http.StatusServiceUnavailable, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.runs, repo.down = tt.runs, tt.down
			rec := httptest.NewRecorder()
			mirrorRouter(f, repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var health HealthResponse
			decode(t, rec, &health)
			if !tt.wantMirror {
				assert.Equal(t, "down", health.Database)
				assert.Nil(t, health.Mirror)
				return
			}
			assert.Equal(t, "up", health.Database)
			require.NotNil(t, health.Mirror)
			assert.Equal(t, 96, health.Mirror.MirroredArrivals)
			if tt.latestID == "" {
				assert.Nil(t, health.Mirror.LatestRun)
			} else {
				require.NotNil(t, health.Mirror.LatestRun)
				assert.Equal(t, tt.latestID, health.Mirror.LatestRun.RunID)
			}
		})
	}
}

func TestAPI_TrainingRuns(t *testing.T) {
	f := newFixture(t, false)
	repo := &memRepository{runs: []*models.TrainingRun{{RunID: "r3"}, {RunID: "r2"}, {RunID: "r1"}}}
	router := mirrorRouter(f, repo)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := get("/api/training-runs?limit=2&offset=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var runs []*models.TrainingRun
	decode(t, rec, &runs)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID)

	assert.Equal(t, http.StatusBadRequest, get("/api/training-runs?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/training-runs?offset=-1").Code)
}

func TestOpenAPIDocument_ListsEveryRoute(t *testing.T) {
	doc := OpenAPIDocument()
	paths := doc["paths"].(map[string]interface{})
	for _, p := range []string{"/health", "/api/overview", "/api/forecast", "/api/training-runs"} {
		assert.Contains(t, paths, p)
	}
}
