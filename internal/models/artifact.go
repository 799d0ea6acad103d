package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Model kinds
const (
	KindRidge         = "ridge"
	KindGBT           = "gbt"
	KindSeasonalNaive = "seasonal_naive"
	KindEnsemble      = "ensemble"
)

// Metrics are holdout error measures of one model
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
}

// CandidateResult is the outcome of training one candidate
type CandidateResult struct {
	Kind    string   `json:"kind"`
	Metrics *Metrics `json:"metrics,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// SeriesPoint is one observation of the aggregated monthly series
type SeriesPoint struct {
	Period Period  `json:"period"`
	Value  float64 `json:"value"`
}

// ModelArtifact is a fitted model plus everything inference needs.
// Artifacts are replaced wholesale by later training runs.
type ModelArtifact struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	Kind          string            `json:"kind"`
	Params        json.RawMessage   `json:"params"`
	FeatureSchema []string          `json:"feature_schema"`
	Metrics       Metrics           `json:"metrics"`
	Candidates    []CandidateResult `json:"candidates"`
	Country       string            `json:"country,omitempty"`
	Origin        Period            `json:"origin"`
	LastPeriod    Period            `json:"last_period"`
	History       []SeriesPoint     `json:"history"`
	TrainingRows  int               `json:"training_rows"`
	HoldoutMonths int               `json:"holdout_months"`
	Seed          int64             `json:"seed"`
}

// MetricsReport is written next to the artifact on every successful run
type MetricsReport struct {
	RunID         string            `json:"run_id"`
	ArtifactID    string            `json:"artifact_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Selected      string            `json:"selected"`
	Metrics       Metrics           `json:"metrics"`
	Candidates    []CandidateResult `json:"candidates"`
	TrainingRange PeriodRange       `json:"training_range"`
	HoldoutRange  PeriodRange       `json:"holdout_range"`
	TrainingRows  int               `json:"training_rows"`
	HoldoutRows   int               `json:"holdout_rows"`
	Country       string            `json:"country,omitempty"`
	Seed          int64             `json:"seed"`
}

// TrainingRun is the database mirror row of a training run
type TrainingRun struct {
	ID           int64     `json:"id" db:"id"`
	RunID        string    `json:"run_id" db:"run_id"`
	ArtifactID   string    `json:"artifact_id" db:"artifact_id"`
	Kind         string    `json:"kind" db:"kind"`
	MAE          float64   `json:"mae" db:"mae"`
	RMSE         float64   `json:"rmse" db:"rmse"`
	MAPE         float64   `json:"mape" db:"mape"`
	TrainingRows int       `json:"training_rows" db:"training_rows"`
	Country      string    `json:"country" db:"country"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ForecastPoint is the prediction for one future month
type ForecastPoint struct {
	Period    Period  `json:"period"`
	Predicted float64 `json:"predicted"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// ForecastResult is an ordered sequence of forecast points.
// Not persisted.
type ForecastResult struct {
	ArtifactID      string          `json:"artifact_id"`
	Kind            string          `json:"kind"`
	Country         string          `json:"country,omitempty"`
	Horizon         int             `json:"horizon"`
	ConfidenceLevel float64         `json:"confidence_level"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Points          []ForecastPoint `json:"points"`
}
