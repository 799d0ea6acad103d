package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/services"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

var testMetrics = metrics.NewCollector("test_dashboard")

func newRouter(t *testing.T, runPipeline bool) *mux.Router {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.ResolvePaths()
	cfg.Collector.StartYear = 2022
	cfg.Collector.EndYear = 2024
	cfg.Collector.EndMonth = 12
	cfg.Collector.Countries = []string{"India", "Maldives"}
	cfg.Modeling.GBT.Trees = 20

	ctx := context.Background()
	pipeline := services.NewPipelineService(cfg, nil, logging.Nop(), testMetrics)
	if runPipeline {
		_, err := pipeline.Run(ctx, nil)
		require.NoError(t, err)
	}
	snapshots := services.NewSnapshotStore(cfg.Paths.ProcessedFile(), pipeline.Artifacts(), logging.Nop(), testMetrics)
	require.NoError(t, snapshots.Reload(ctx))

	h := NewHandler(
		services.NewAnalyticsService(snapshots),
		services.NewForecastService(snapshots, cfg.Forecast, logging.Nop(), testMetrics),
		language.English,
		logging.Nop(),
		testMetrics,
	)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestDashboard_RendersSnapshot(t *testing.T) {
	router := newRouter(t, true)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Total arrivals")
	assert.Contains(t, body, "India")
	assert.Contains(t, body, "Maldives")
	assert.Contains(t, body, "2025-01")
	assert.Contains(t, body, "(selected)")
	// thousands separators from the message printer
	assert.Regexp(t, `\d{1,3},\d{3}`, body)
	assert.NotContains(t, body, "No processed data yet")
}

func TestDashboard_EmptySnapshot(t *testing.T) {
	router := newRouter(t, false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No processed data yet")
	assert.Contains(t, rec.Body.String(), "No trained model yet")
}
