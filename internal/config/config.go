package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"tourism-forecast/internal/features"
)

// EnvPrefix is the prefix of every environment override, e.g. TOURISM_SERVER_PORT.
const EnvPrefix = "TOURISM_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "TOURISM_CONFIG"

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"configs/config.yaml",
	"/etc/tourism-forecast/config.yaml",
}

// Config holds the complete application configuration
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Dashboard  DashboardConfig  `koanf:"dashboard"`
	Logging    LoggingConfig    `koanf:"logging"`
	Paths      PathsConfig      `koanf:"paths"`
	Collector  CollectorConfig  `koanf:"collector"`
	Preprocess PreprocessConfig `koanf:"preprocess"`
	Modeling   ModelingConfig   `koanf:"modeling"`
	Forecast   ForecastConfig   `koanf:"forecast"`
	Database   DatabaseConfig   `koanf:"database"`
	Launcher   LauncherConfig   `koanf:"launcher"`
}

// ServerConfig contains the JSON API server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitPerMin int           `koanf:"rate_limit_per_min" validate:"min=0"`
}

// DashboardConfig contains the HTML dashboard server settings
type DashboardConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// PathsConfig contains the flat-file layout of the pipeline
type PathsConfig struct {
	DataDir      string `koanf:"data_dir" validate:"required"`
	RawDir       string `koanf:"raw_dir"`
	InboxDir     string `koanf:"inbox_dir"`
	ProcessedDir string `koanf:"processed_dir"`
	ModelsDir    string `koanf:"models_dir"`
	ExportsDir   string `koanf:"exports_dir"`
}

// CollectorConfig controls the data collection stage
type CollectorConfig struct {
	StartYear       int           `koanf:"start_year" validate:"min=1950,max=2200"`
	EndYear         int           `koanf:"end_year" validate:"min=1950,max=2200,gtefield=StartYear"`
	EndMonth        int           `koanf:"end_month" validate:"min=1,max=12"`
	Countries       []string      `koanf:"countries" validate:"min=1,dive,required"`
	SourceURL       string        `koanf:"source_url" validate:"omitempty,startswith=http"`
	HTTPTimeout     time.Duration `koanf:"http_timeout" validate:"gt=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	EnableSynthetic bool          `koanf:"enable_synthetic"`
	SyntheticSeed   int64         `koanf:"synthetic_seed"`
}

// PreprocessConfig controls cleaning and feature engineering
type PreprocessConfig struct {
	OutlierStdDevs float64  `koanf:"outlier_std_devs" validate:"gt=0"`
	Holidays       []string `koanf:"holidays" validate:"dive,datetime=2006-01-02"`
	ExportXLSX     bool     `koanf:"export_xlsx"`
}

// ModelingConfig controls candidate training and selection
type ModelingConfig struct {
	Candidates      []string            `koanf:"candidates" validate:"min=1,dive,oneof=ridge gbt seasonal_naive ensemble"`
	Features        []string            `koanf:"features" validate:"min=1,unique"`
	HoldoutMonths   int                 `koanf:"holdout_months" validate:"min=1,max=36"`
	MinTrainingRows int                 `koanf:"min_training_rows" validate:"min=2"`
	Seed            int64               `koanf:"seed"`
	Country         string              `koanf:"country"`
	Ridge           RidgeConfig         `koanf:"ridge"`
	GBT             GBTConfig           `koanf:"gbt"`
	SeasonalNaive   SeasonalNaiveConfig `koanf:"seasonal_naive"`
	Ensemble        EnsembleConfig      `koanf:"ensemble"`
}

// RidgeConfig holds ridge regression hyperparameters
type RidgeConfig struct {
	Lambda float64 `koanf:"lambda" validate:"gte=0"`
}

// GBTConfig holds gradient boosted tree hyperparameters
type GBTConfig struct {
	Trees        int     `koanf:"trees" validate:"min=1,max=5000"`
	MaxDepth     int     `koanf:"max_depth" validate:"min=1,max=10"`
	LearningRate float64 `koanf:"learning_rate" validate:"gt=0,lte=1"`
	Subsample    float64 `koanf:"subsample" validate:"gt=0,lte=1"`
	MinLeaf      int     `koanf:"min_leaf" validate:"min=1"`
}

// SeasonalNaiveConfig holds the seasonal naive model settings
type SeasonalNaiveConfig struct {
	DriftWindow int `koanf:"drift_window" validate:"min=1,max=12"`
}

// EnsembleConfig lists the model kinds averaged by the ensemble candidate
type EnsembleConfig struct {
	Members []string `koanf:"members" validate:"min=2,unique,dive,oneof=ridge gbt seasonal_naive"`
}

// ForecastConfig controls inference
type ForecastConfig struct {
	DefaultHorizon  int     `koanf:"default_horizon" validate:"min=1"`
	MaxHorizon      int     `koanf:"max_horizon" validate:"min=1,gtefield=DefaultHorizon"`
	ConfidenceLevel float64 `koanf:"confidence_level"`
}

// DatabaseConfig holds the optional Postgres mirror settings
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host" validate:"required_if=Enabled true"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Database        string        `koanf:"database" validate:"required_if=Enabled true"`
	SSLMode         string        `koanf:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// LauncherConfig controls the process launcher
type LauncherConfig struct {
	ServerCommand    string        `koanf:"server_command" validate:"required"`
	DashboardCommand string        `koanf:"dashboard_command" validate:"required"`
	ShutdownGrace    time.Duration `koanf:"shutdown_grace" validate:"gt=0"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitPerMin: 600,
		},
		Dashboard: DashboardConfig{
			Host: "0.0.0.0",
			Port: 8501,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Paths: PathsConfig{
			DataDir: "./data",
		},
		Collector: CollectorConfig{
			StartYear: 2019,
			EndYear:   2025,
			EndMonth:  11,
			Countries: []string{
				"India", "China", "United Kingdom", "Germany", "France",
				"United States", "Australia", "Russia", "Japan", "Maldives",
				"Netherlands", "Switzerland", "Italy", "Canada", "UAE",
			},
			HTTPTimeout:     10 * time.Second,
			BreakerFailures: 3,
			EnableSynthetic: true,
			SyntheticSeed:   42,
		},
		Preprocess: PreprocessConfig{
			OutlierStdDevs: 3,
			Holidays:       DefaultHolidays(),
		},
		Modeling: ModelingConfig{
			Candidates:      []string{"ridge", "gbt", "seasonal_naive", "ensemble"},
			Features:        append([]string(nil), features.DefaultSchema...),
			HoldoutMonths:   3,
			MinTrainingRows: 6,
			Seed:            42,
			Ridge:           RidgeConfig{Lambda: 1.0},
			GBT: GBTConfig{
				Trees:        200,
				MaxDepth:     3,
				LearningRate: 0.1,
				Subsample:    0.8,
				MinLeaf:      2,
			},
			SeasonalNaive: SeasonalNaiveConfig{DriftWindow: 3},
			Ensemble:      EnsembleConfig{Members: []string{"ridge", "gbt"}},
		},
		Forecast: ForecastConfig{
			DefaultHorizon:  12,
			MaxHorizon:      60,
			ConfidenceLevel: 0.95,
		},
		Database: DatabaseConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			User:            "tourism",
			Database:        "tourism",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Launcher: LauncherConfig{
			ServerCommand:    "tourism-server",
			DashboardCommand: "tourism-dashboard",
			ShutdownGrace:    10 * time.Second,
		},
	}
}

// LoadConfig loads configuration with precedence ENV > file > defaults and validates it.
func LoadConfig() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom loads configuration using an explicit file path ("" skips the file layer).
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.ResolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps TOURISM_SECTION_KEY to section.key.
// A double underscore addresses nested sections:
// TOURISM_MODELING_GBT__TREES -> modeling.gbt.trees
func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	return strings.Replace(key, "_", ".", 1)
}

var sliceConfigPaths = []string{
	"server.cors_origins",
	"collector.countries",
	"preprocess.holidays",
	"modeling.candidates",
	"modeling.features",
	"modeling.ensemble.members",
}

// processSliceFields splits comma-separated env values for slice settings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// ResolvePaths fills stage directories that were left empty.
func (c *Config) ResolvePaths() {
	p := &c.Paths
	if p.RawDir == "" {
		p.RawDir = filepath.Join(p.DataDir, "raw")
	}
	if p.InboxDir == "" {
		p.InboxDir = filepath.Join(p.RawDir, "inbox")
	}
	if p.ProcessedDir == "" {
		p.ProcessedDir = filepath.Join(p.DataDir, "processed")
	}
	if p.ModelsDir == "" {
		p.ModelsDir = filepath.Join(p.DataDir, "models")
	}
	if p.ExportsDir == "" {
		p.ExportsDir = filepath.Join(p.DataDir, "exports")
	}
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	switch c.Forecast.ConfidenceLevel {
	case 0.90, 0.95, 0.99:
	default:
		return fmt.Errorf("forecast.confidence_level must be one of 0.90, 0.95, 0.99, got %v", c.Forecast.ConfidenceLevel)
	}

	for _, name := range c.Modeling.Features {
		if !features.Known(name) {
			return fmt.Errorf("modeling.features: unknown feature %q (supported: %s)",
				name, strings.Join(features.KnownNames(), ", "))
		}
	}

	if c.Modeling.MinTrainingRows <= c.Modeling.HoldoutMonths/2 {
		return fmt.Errorf("modeling.min_training_rows (%d) is too small for holdout_months=%d",
			c.Modeling.MinTrainingRows, c.Modeling.HoldoutMonths)
	}

	return nil
}

func formatValidationErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// EnsureDirectories creates every pipeline directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.RawDir, c.Paths.InboxDir, c.Paths.ProcessedDir, c.Paths.ModelsDir, c.Paths.ExportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// RawFile is the append-only raw arrivals file.
func (p PathsConfig) RawFile() string { return filepath.Join(p.RawDir, "arrivals.csv") }

// ProcessedFile is the processed dataset.
func (p PathsConfig) ProcessedFile() string {
	return filepath.Join(p.ProcessedDir, "arrivals_processed.csv")
}

// ArtifactFile is the current trained model artifact.
func (p PathsConfig) ArtifactFile() string { return filepath.Join(p.ModelsDir, "model_artifact.json") }

// ReportFile is the metrics report of the latest training run.
func (p PathsConfig) ReportFile() string { return filepath.Join(p.ModelsDir, "metrics_report.json") }
