// Package modeling trains candidate forecasting models on the aggregated
// monthly series, evaluates them on a time-ordered holdout and persists the
// best one as a model artifact.
package modeling

import (
	"fmt"

	"github.com/goccy/go-json"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
)

// Model is a regression model over feature vectors. Fit receives rows in
// schema order; Predict receives a row in Features() order.
type Model interface {
	Kind() string
	Fit(schema []string, X [][]float64, y []float64) error
	Predict(x []float64) float64
	// Features are the inputs the fitted model needs, in Predict order
	Features() []string
	Params() (json.RawMessage, error)
}

// New creates an unfitted model of the given kind
func New(kind string, cfg config.ModelingConfig) (Model, error) {
	switch kind {
	case models.KindRidge:
		return newRidge(cfg.Ridge.Lambda), nil
	case models.KindGBT:
		return newGBT(cfg.GBT, cfg.Seed), nil
	case models.KindSeasonalNaive:
		return newSeasonalNaive(cfg.SeasonalNaive.DriftWindow), nil
	case models.KindEnsemble:
		return newEnsemble(cfg)
	default:
		return nil, &models.ValidationError{Field: "kind", Value: kind, Message: "unknown model kind"}
	}
}

// Restore rebuilds a fitted model from persisted parameters
func Restore(kind string, params json.RawMessage) (Model, error) {
	var m Model
	switch kind {
	case models.KindRidge:
		m = &ridge{}
	case models.KindGBT:
		m = &gbt{}
	case models.KindSeasonalNaive:
		m = &seasonalNaive{}
	case models.KindEnsemble:
		m = &ensemble{}
	default:
		return nil, &models.ValidationError{Field: "kind", Value: kind, Message: "unknown model kind"}
	}
	if err := json.Unmarshal(params, m); err != nil {
		return nil, fmt.Errorf("failed to decode %s parameters: %w", kind, err)
	}
	if len(m.Features()) == 0 {
		return nil, &models.SchemaMismatchError{Reason: kind + " parameters list no features"}
	}
	return m, nil
}

// Projection maps rows in one schema to a model's feature order
type Projection []int

// NewProjection resolves features within schema. Missing features are
// reported as a SchemaMismatchError.
func NewProjection(schema, features []string) (Projection, error) {
	pos := make(map[string]int, len(schema))
	for i, name := range schema {
		pos[name] = i
	}
	proj := make(Projection, len(features))
	var missing []string
	for i, name := range features {
		j, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		proj[i] = j
	}
	if len(missing) > 0 {
		return nil, &models.SchemaMismatchError{Missing: missing}
	}
	return proj, nil
}

// Apply returns row reordered for the model
func (p Projection) Apply(row []float64) []float64 {
	out := make([]float64, len(p))
	for i, j := range p {
		out[i] = row[j]
	}
	return out
}

func columnIndex(schema []string, name string) int {
	for i, s := range schema {
		if s == name {
			return i
		}
	}
	return -1
}
