package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

var testMetrics = metrics.NewCollector("test_services")

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.ResolvePaths()
	cfg.Collector.StartYear = 2021
	cfg.Collector.EndYear = 2024
	cfg.Collector.EndMonth = 12
	cfg.Collector.Countries = []string{"India", "China", "Germany"}
	cfg.Modeling.GBT.Trees = 30
	cfg.Preprocess.ExportXLSX = true
	return cfg
}

func storeWith(records []models.ProcessedRecord) *SnapshotStore {
	s := NewSnapshotStore("", storage.NewArtifactStore("", ""), logging.Nop(), testMetrics)
	s.current = &Snapshot{Records: records, LoadedAt: time.Now()}
	return s
}

func rec(year, month int, country string, arrivals float64) models.ProcessedRecord {
	return models.ProcessedRecord{Year: year, Month: month, Country: country, Arrivals: arrivals}
}

func TestPipelineService_RunAndServe(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	svc := NewPipelineService(cfg, nil, logging.Nop(), testMetrics)

	result, err := svc.Run(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Collect)
	assert.Equal(t, 48*3, result.Collect.Appended)
	assert.True(t, result.Collect.Fallback)
	require.NotNil(t, result.Preprocess)
	assert.Equal(t, 48*3, result.Preprocess.ProcessedRows)
	require.NotNil(t, result.Train)
	assert.FileExists(t, result.ExportPath)
	assert.FileExists(t, cfg.Paths.ArtifactFile())
	assert.FileExists(t, cfg.Paths.ReportFile())

	snapshots := NewSnapshotStore(cfg.Paths.ProcessedFile(), svc.Artifacts(), logging.Nop(), testMetrics)
	require.NoError(t, snapshots.Reload(ctx))
	snap := snapshots.Current()
	assert.Len(t, snap.Records, 48*3)
	require.NotNil(t, snap.Artifact)
	require.NotNil(t, snap.Report)
	assert.Equal(t, snap.Artifact.ID, snap.Report.ArtifactID)

	fs := NewForecastService(snapshots, cfg.Forecast, logging.Nop(), testMetrics)
	res, err := fs.Forecast(ctx, fs.DefaultHorizon())
	require.NoError(t, err)
	require.Len(t, res.Points, cfg.Forecast.DefaultHorizon)
	assert.Equal(t, models.Period{Year: 2025, Month: 1}, res.Points[0].Period)

	info, err := fs.ModelInfo()
	require.NoError(t, err)
	assert.Equal(t, snap.Artifact.ID, info.ArtifactID)

	// a second run appends nothing new
	again, err := svc.Run(ctx, map[string]bool{StageTrain: true})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Collect.Appended)
	assert.Nil(t, again.Train)
}

func TestPipelineService_TrainWithoutDataKeepsNothing(t *testing.T) {
	cfg := testConfig(t)
	svc := NewPipelineService(cfg, nil, logging.Nop(), testMetrics)
	_, err := svc.Run(context.Background(), map[string]bool{StageCollect: true, StagePreprocess: true})
	require.Error(t, err)
	assert.NoFileExists(t, cfg.Paths.ArtifactFile())
}

func TestPipelineService_TrainUsesConfiguredFeatures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Modeling.Features = []string{"trend", "quarter", "lag_1", "lag_3", "lag_6", "lag_12"}
	cfg.Modeling.Candidates = []string{models.KindRidge, models.KindEnsemble}
	require.NoError(t, cfg.Validate())

	svc := NewPipelineService(cfg, nil, logging.Nop(), testMetrics)
	result, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, result.Train.Candidates, 2)

	artifact, err := svc.Artifacts().LoadArtifact()
	require.NoError(t, err)
	assert.Equal(t, cfg.Modeling.Features, artifact.FeatureSchema)

	forecasts := NewForecastService(snapshotFor(t, cfg, svc), cfg.Forecast, logging.Nop(), testMetrics)
	res, err := forecasts.Forecast(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, res.Points, 4)
}

func snapshotFor(t *testing.T, cfg *config.Config, svc *PipelineService) *SnapshotStore {
	t.Helper()
	s := NewSnapshotStore(cfg.Paths.ProcessedFile(), svc.Artifacts(), logging.Nop(), testMetrics)
	require.NoError(t, s.Reload(context.Background()))
	return s
}

func TestSnapshotStore_ReloadKeepsPreviousOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed.csv")
	require.NoError(t, storage.WriteProcessed(processed, []models.ProcessedRecord{rec(2024, 1, "India", 100)}))

	s := NewSnapshotStore(processed, storage.NewArtifactStore(filepath.Join(dir, "a.json"), filepath.Join(dir, "r.json")), logging.Nop(), testMetrics)
	require.NoError(t, s.Reload(context.Background()))
	require.Len(t, s.Current().Records, 1)
	assert.Nil(t, s.Current().Artifact)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{not json"), 0o644))
	assert.Error(t, s.Reload(context.Background()))
	assert.Len(t, s.Current().Records, 1)
}

func TestSnapshotStore_WatchReloadsOnReplace(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed.csv")
	s := NewSnapshotStore(processed, storage.NewArtifactStore(filepath.Join(dir, "a.json"), filepath.Join(dir, "r.json")), logging.Nop(), testMetrics)
	require.NoError(t, s.Reload(context.Background()))
	assert.Empty(t, s.Current().Records)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	// let the watcher register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, storage.WriteProcessed(processed, []models.ProcessedRecord{rec(2024, 1, "India", 100)}))
	assert.Eventually(t, func() bool { return len(s.Current().Records) == 1 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestAnalyticsService_EmptySnapshot(t *testing.T) {
	a := NewAnalyticsService(storeWith(nil))
	_, err := a.Overview()
	assert.True(t, models.IsNotFound(err))
	_, err = a.AvailableYears()
	assert.True(t, models.IsNotFound(err))
}

func TestAnalyticsService_Queries(t *testing.T) {
	records := []models.ProcessedRecord{
		rec(2023, 1, "India", 100),
		rec(2023, 2, "India", 200),
		rec(2023, 1, "China", 50),
		rec(2024, 1, "India", 300),
		rec(2024, 1, "China", 150),
		rec(2024, 2, "Germany", 10),
	}
	a := NewAnalyticsService(storeWith(records))

	ov, err := a.Overview()
	require.NoError(t, err)
	assert.Equal(t, int64(810), ov.TotalArrivals)
	assert.Equal(t, "2023-01-01", ov.DateRange.Start)
	assert.Equal(t, "2024-02-01", ov.DateRange.End)
	require.NotEmpty(t, ov.TopCountries)
	assert.Equal(t, "India", ov.TopCountries[0].Country)

	year := 2024
	trends, err := a.MonthlyTrends(&year)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, PeriodValue{Date: "2024-01-01", Arrivals: 450}, trends[0])

	ct, err := a.CountryTrend("india")
	require.NoError(t, err)
	assert.Len(t, ct.Trends, 3)
	_, err = a.CountryTrend("Atlantis")
	assert.True(t, models.IsNotFound(err))

	top, err := a.TopCountries(1, &year)
	require.NoError(t, err)
	assert.Equal(t, []CountryTotal{{Country: "India", Arrivals: 300}}, top)
	for _, limit := range []int{0, 101} {
		_, err = a.TopCountries(limit, nil)
		assert.True(t, models.IsValidation(err))
	}

	years, err := a.YearComparison()
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, int64(350), years[0].TotalArrivals)
	assert.Equal(t, int64(175), years[0].AvgMonthly)

	growth, err := a.GrowthRates()
	require.NoError(t, err)
	require.Len(t, growth, 1)
	assert.InDelta(t, (460.0-350.0)/350.0*100, growth[0].YoYGrowth, 1e-9)

	seasonal, err := a.SeasonalPatterns()
	require.NoError(t, err)
	require.Len(t, seasonal, 2)
	assert.Equal(t, "January", seasonal[0].MonthName)

	countries, err := a.AvailableCountries()
	require.NoError(t, err)
	assert.Equal(t, []string{"China", "Germany", "India"}, countries)

	regions, err := a.RegionalTotals()
	require.NoError(t, err)
	var sum float64
	for _, r := range regions {
		sum += r.Arrivals
	}
	assert.Equal(t, 810.0, sum)
}

func TestForecastService_NoArtifact(t *testing.T) {
	fs := NewForecastService(storeWith(nil), config.DefaultConfig().Forecast, logging.Nop(), testMetrics)
	_, err := fs.Forecast(context.Background(), 3)
	assert.True(t, models.IsNotFound(err))
	_, err = fs.ModelInfo()
	assert.True(t, models.IsNotFound(err))
}
