package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResolvePaths()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("data", "raw"), filepath.Clean(cfg.Paths.RawDir))
	assert.Equal(t, 0.95, cfg.Forecast.ConfidenceLevel)
}

func TestLoadFrom_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
server:
  port: 7000
  read_timeout: 5s
modeling:
  holdout_months: 4
  gbt:
    trees: 50
paths:
  data_dir: ` + dir + `
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	t.Setenv("TOURISM_SERVER_PORT", "7100")
	t.Setenv("TOURISM_MODELING_GBT__LEARNING_RATE", "0.05")
	t.Setenv("TOURISM_COLLECTOR_COUNTRIES", "India, China ,Japan")
	t.Setenv("TOURISM_MODELING_FEATURES", "trend,lag_1,lag_3,lag_12")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 4, cfg.Modeling.HoldoutMonths)
	assert.Equal(t, 50, cfg.Modeling.GBT.Trees)
	assert.Equal(t, 0.05, cfg.Modeling.GBT.LearningRate)
	assert.Equal(t, []string{"India", "China", "Japan"}, cfg.Collector.Countries)
	assert.Equal(t, []string{"trend", "lag_1", "lag_3", "lag_12"}, cfg.Modeling.Features)
	assert.Equal(t, filepath.Join(dir, "processed"), cfg.Paths.ProcessedDir)
	assert.Equal(t, filepath.Join(dir, "models", "model_artifact.json"), cfg.Paths.ArtifactFile())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"end before start", func(c *Config) { c.Collector.EndYear = c.Collector.StartYear - 1 }, true},
		{"unknown candidate", func(c *Config) { c.Modeling.Candidates = []string{"prophet"} }, true},
		{"no candidates", func(c *Config) { c.Modeling.Candidates = nil }, true},
		{"ensemble candidate", func(c *Config) { c.Modeling.Candidates = []string{"ridge", "ensemble"} }, false},
		{"ensemble of one", func(c *Config) { c.Modeling.Ensemble.Members = []string{"ridge"} }, true},
		{"ensemble of itself", func(c *Config) { c.Modeling.Ensemble.Members = []string{"ridge", "ensemble"} }, true},
		{"custom features", func(c *Config) { c.Modeling.Features = []string{"trend", "lag_3", "lag_6", "quarter"} }, false},
		{"unknown feature", func(c *Config) { c.Modeling.Features = []string{"trend", "weather_index"} }, true},
		{"duplicate feature", func(c *Config) { c.Modeling.Features = []string{"lag_1", "lag_1"} }, true},
		{"no features", func(c *Config) { c.Modeling.Features = nil }, true},
		{"bad confidence", func(c *Config) { c.Forecast.ConfidenceLevel = 0.8 }, true},
		{"confidence 0.99", func(c *Config) { c.Forecast.ConfidenceLevel = 0.99 }, false},
		{"max horizon below default", func(c *Config) { c.Forecast.MaxHorizon = 3 }, true},
		{"bad holiday", func(c *Config) { c.Preprocess.Holidays = []string{"2024/01/01"} }, true},
		{"db enabled without host", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Host = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"TOURISM_SERVER_PORT":            "server.port",
		"TOURISM_COLLECTOR_START_YEAR":   "collector.start_year",
		"TOURISM_MODELING_GBT__MAX_DEPTH": "modeling.gbt.max_depth",
		"TOURISM_CONFIG":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, envTransformFunc(in), in)
	}
}
