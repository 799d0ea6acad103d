package modeling

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"tourism-forecast/internal/features"
	"tourism-forecast/internal/models"
)

// seasonalNaive predicts last year's value for the same month scaled by
// the median year-over-year ratio of the most recent training rows.
type seasonalNaive struct {
	Names       []string `json:"features"`
	DriftWindow int      `json:"drift_window"`
	Ratio       float64  `json:"ratio"`
}

func newSeasonalNaive(window int) *seasonalNaive {
	return &seasonalNaive{DriftWindow: window}
}

func (m *seasonalNaive) Kind() string { return models.KindSeasonalNaive }

func (m *seasonalNaive) Features() []string { return m.Names }

func (m *seasonalNaive) Params() (json.RawMessage, error) { return json.Marshal(m) }

func (m *seasonalNaive) Fit(schema []string, X [][]float64, y []float64) error {
	j := columnIndex(schema, features.Lag12)
	if j < 0 {
		return &models.SchemaMismatchError{Missing: []string{features.Lag12}}
	}
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("seasonal_naive: need matching non-empty X and y, got %d and %d", len(X), len(y))
	}

	window := m.DriftWindow
	if window < 1 {
		window = 1
	}
	start := len(X) - window
	if start < 0 {
		start = 0
	}

	var ratios []float64
	for i := start; i < len(X); i++ {
		if X[i][j] > 0 {
			ratios = append(ratios, y[i]/X[i][j])
		}
	}

	m.Names = []string{features.Lag12}
	m.Ratio = 1
	if len(ratios) > 0 {
		m.Ratio = median(ratios)
	}
	return nil
}

func (m *seasonalNaive) Predict(x []float64) float64 {
	return x[0] * m.Ratio
}

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
