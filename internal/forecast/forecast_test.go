package forecast

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/features"
	"tourism-forecast/internal/modeling"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/preprocess"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

var testMetrics = metrics.NewCollector("test_forecast")

func newTestForecaster() *Forecaster {
	return NewForecaster(config.DefaultConfig().Forecast, logging.Nop(), testMetrics)
}

// rawTwoYears returns 24 raw monthly rows for one country
func rawTwoYears() []models.RawRow {
	rows := make([]models.RawRow, 0, 24)
	for i := 0; i < 24; i++ {
		p := models.Period{Year: 2022, Month: 1}.Add(i)
		v := 2000 + 20*float64(i) + 400*math.Cos(2*math.Pi*float64(p.Month)/12)
		rows = append(rows, models.RawRow{
			Year:     fmt.Sprint(p.Year),
			Month:    fmt.Sprint(p.Month),
			Country:  "India",
			Arrivals: fmt.Sprintf("%.0f", v),
			Source:   models.SourceSynthetic,
		})
	}
	return rows
}

func trainedArtifact(t *testing.T) *models.ModelArtifact {
	t.Helper()
	cfg := config.DefaultConfig()
	processed, _, err := preprocess.NewPreprocessor(cfg.Preprocess, logging.Nop(), testMetrics).
		Process(context.Background(), rawTwoYears())
	require.NoError(t, err)

	out, err := modeling.NewTrainer(cfg.Modeling, logging.Nop(), testMetrics).
		Train(context.Background(), processed, "test")
	require.NoError(t, err)
	return out.Artifact
}

func TestEndToEnd_TwoYearsHorizonThree(t *testing.T) {
	cfg := config.DefaultConfig()
	processed, summary, err := preprocess.NewPreprocessor(cfg.Preprocess, logging.Nop(), testMetrics).
		Process(context.Background(), rawTwoYears())
	require.NoError(t, err)
	require.Len(t, processed, 24)

	withYoY := 0
	for _, r := range processed {
		assert.NotEmpty(t, r.Season)
		if r.HasYoY {
			withYoY++
		}
	}
	assert.Equal(t, 12, withYoY)
	assert.Equal(t, 24, summary.ProcessedRows)

	out, err := modeling.NewTrainer(cfg.Modeling, logging.Nop(), testMetrics).
		Train(context.Background(), processed, "e2e")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Report.HoldoutRows)

	res, err := newTestForecaster().Forecast(context.Background(), out.Artifact, 3)
	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	assert.Equal(t, models.Period{Year: 2024, Month: 1}, res.Points[0].Period)
	for i := 1; i < len(res.Points); i++ {
		assert.True(t, res.Points[i-1].Period.Before(res.Points[i].Period))
	}
}

func TestEndToEnd_MissingRawMonth(t *testing.T) {
	tests := []struct {
		name    string
		missing models.Period
	}{
		{"month feeding a forecast lag", models.Period{Year: 2023, Month: 3}},
		{"month inside the holdout", models.Period{Year: 2023, Month: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []models.RawRow
			for _, r := range rawTwoYears() {
				if r.Year != fmt.Sprint(tt.missing.Year) || r.Month != fmt.Sprint(tt.missing.Month) {
					rows = append(rows, r)
				}
			}
			require.Len(t, rows, 23)

			cfg := config.DefaultConfig()
			processed, _, err := preprocess.NewPreprocessor(cfg.Preprocess, logging.Nop(), testMetrics).
				Process(context.Background(), rows)
			require.NoError(t, err)
			require.Len(t, processed, 24)

			out, err := modeling.NewTrainer(cfg.Modeling, logging.Nop(), testMetrics).
				Train(context.Background(), processed, "gap")
			require.NoError(t, err)

			res, err := newTestForecaster().Forecast(context.Background(), out.Artifact, 12)
			require.NoError(t, err)
			require.Len(t, res.Points, 12)
			assert.Equal(t, models.Period{Year: 2024, Month: 1}, res.Points[0].Period)
		})
	}
}

func TestForecast_ConfiguredFeatures(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Modeling.Features = []string{features.Trend, features.Quarter, features.Lag1, features.Lag3, features.Lag6, features.Lag12}
	require.NoError(t, cfg.Validate())

	processed, _, err := preprocess.NewPreprocessor(cfg.Preprocess, logging.Nop(), testMetrics).
		Process(context.Background(), rawTwoYears())
	require.NoError(t, err)
	out, err := modeling.NewTrainer(cfg.Modeling, logging.Nop(), testMetrics).
		Train(context.Background(), processed, "features")
	require.NoError(t, err)
	assert.Equal(t, cfg.Modeling.Features, out.Artifact.FeatureSchema)

	res, err := newTestForecaster().Forecast(context.Background(), out.Artifact, 6)
	require.NoError(t, err)
	assert.Len(t, res.Points, 6)
}

func TestForecast_OrderingAndBounds(t *testing.T) {
	artifact := trainedArtifact(t)
	for _, horizon := range []int{1, 7, 60} {
		res, err := newTestForecaster().Forecast(context.Background(), artifact, horizon)
		require.NoError(t, err)
		require.Len(t, res.Points, horizon)
		assert.Equal(t, artifact.LastPeriod.Next(), res.Points[0].Period)

		prevWidth := -1.0
		for i, pt := range res.Points {
			if i > 0 {
				assert.Equal(t, res.Points[i-1].Period.Next(), pt.Period)
			}
			assert.GreaterOrEqual(t, pt.Predicted, 0.0)
			assert.GreaterOrEqual(t, pt.Lower, 0.0)
			assert.LessOrEqual(t, pt.Lower, pt.Predicted)
			assert.GreaterOrEqual(t, pt.Upper, pt.Predicted)
			width := pt.Upper - pt.Predicted
			assert.GreaterOrEqual(t, width, prevWidth)
			prevWidth = width
		}
	}
}

func TestForecast_HorizonValidation(t *testing.T) {
	artifact := trainedArtifact(t)
	for _, horizon := range []int{0, -1, 61} {
		res, err := newTestForecaster().Forecast(context.Background(), artifact, horizon)
		assert.Nil(t, res)
		assert.True(t, models.IsValidation(err), "horizon %d: %v", horizon, err)
	}
}

func TestForecast_SchemaMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *models.ModelArtifact)
	}{
		{"empty schema", func(a *models.ModelArtifact) { a.FeatureSchema = nil }},
		{"unknown feature", func(a *models.ModelArtifact) {
			a.FeatureSchema = append(append([]string(nil), a.FeatureSchema...), "weather_index")
		}},
		{"required feature excluded", func(a *models.ModelArtifact) {
			var kept []string
			for _, f := range a.FeatureSchema {
				if f != features.Lag12 && f != features.Lag1 {
					kept = append(kept, f)
				}
			}
			a.FeatureSchema = kept
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := trainedArtifact(t)
			tt.mutate(artifact)
			res, err := newTestForecaster().Forecast(context.Background(), artifact, 3)
			assert.Nil(t, res)
			assert.True(t, models.IsSchemaMismatch(err), "got %v", err)
		})
	}
}

func TestForecast_NoArtifact(t *testing.T) {
	_, err := newTestForecaster().Forecast(context.Background(), nil, 3)
	assert.True(t, models.IsNotFound(err))
}
