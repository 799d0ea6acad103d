// Package features builds model input vectors from a monthly series.
// The same builder is used for training rows and for recursive
// forecasting, so a schema recorded at training time can be replayed
// exactly at inference time.
package features

import (
	"sort"

	"tourism-forecast/internal/models"
)

// Feature names
const (
	Trend           = "trend"
	MonthSinName    = "month_sin"
	MonthCosName    = "month_cos"
	Quarter         = "quarter"
	Lag1            = "lag_1"
	Lag2            = "lag_2"
	Lag3            = "lag_3"
	Lag6            = "lag_6"
	Lag12           = "lag_12"
	RollingAvg3m    = "rolling_avg_3m"
	SeasonSouthwest = "season_southwest"
	SeasonNortheast = "season_northeast"
	SeasonInter     = "season_inter"
)

// DefaultSchema is the feature set used when none is configured
var DefaultSchema = []string{
	Trend, MonthSinName, MonthCosName,
	Lag1, Lag12, RollingAvg3m,
	SeasonSouthwest, SeasonNortheast, SeasonInter,
}

// featureSpec describes how to compute one feature. lookback is the
// number of prior months that must be present in the history.
type featureSpec struct {
	lookback int
	compute  func(b *Builder, p models.Period, h History) (float64, bool)
}

var known = map[string]featureSpec{
	Trend: {0, func(b *Builder, p models.Period, _ History) (float64, bool) {
		return float64(p.Sub(b.origin)), true
	}},
	MonthSinName: {0, func(_ *Builder, p models.Period, _ History) (float64, bool) {
		return MonthSin(p.Month), true
	}},
	MonthCosName: {0, func(_ *Builder, p models.Period, _ History) (float64, bool) {
		return MonthCos(p.Month), true
	}},
	Quarter: {0, func(_ *Builder, p models.Period, _ History) (float64, bool) {
		return float64(p.Quarter()), true
	}},
	Lag1:  {1, lag(1)},
	Lag2:  {2, lag(2)},
	Lag3:  {3, lag(3)},
	Lag6:  {6, lag(6)},
	Lag12: {12, lag(12)},
	RollingAvg3m: {3, func(_ *Builder, p models.Period, h History) (float64, bool) {
		sum, n := 0.0, 0
		for k := 1; k <= 3; k++ {
			if v, ok := h[p.Add(-k)]; ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return 0, false
		}
		return sum / float64(n), true
	}},
	SeasonSouthwest: {0, seasonIndicator(models.SeasonSouthwest)},
	SeasonNortheast: {0, seasonIndicator(models.SeasonNortheast)},
	SeasonInter:     {0, seasonIndicator(models.SeasonInter)},
}

func lag(k int) func(*Builder, models.Period, History) (float64, bool) {
	return func(_ *Builder, p models.Period, h History) (float64, bool) {
		v, ok := h[p.Add(-k)]
		return v, ok
	}
}

func seasonIndicator(season string) func(*Builder, models.Period, History) (float64, bool) {
	return func(_ *Builder, p models.Period, _ History) (float64, bool) {
		if Season(p.Month) == season {
			return 1, true
		}
		return 0, true
	}
}

// Known reports whether name is a feature the builder can compute
func Known(name string) bool {
	_, ok := known[name]
	return ok
}

// KnownNames returns every supported feature name, sorted
func KnownNames() []string {
	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// History maps a month to its observed (or predicted) value
type History map[models.Period]float64

// NewHistory indexes a series by period
func NewHistory(points []models.SeriesPoint) History {
	h := make(History, len(points))
	for _, pt := range points {
		h[pt.Period] = pt.Value
	}
	return h
}

// Builder computes feature vectors in schema order
type Builder struct {
	schema []string
	specs  []featureSpec
	origin models.Period
}

// NewBuilder validates schema and returns a builder. origin anchors the
// trend feature (trend is 0 at origin).
func NewBuilder(schema []string, origin models.Period) (*Builder, error) {
	if len(schema) == 0 {
		return nil, &models.SchemaMismatchError{Reason: "feature schema is empty"}
	}
	var unknown []string
	seen := make(map[string]bool, len(schema))
	specs := make([]featureSpec, 0, len(schema))
	for _, name := range schema {
		spec, ok := known[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if seen[name] {
			return nil, &models.SchemaMismatchError{Reason: "duplicate feature " + name}
		}
		seen[name] = true
		specs = append(specs, spec)
	}
	if len(unknown) > 0 {
		return nil, &models.SchemaMismatchError{Unknown: unknown}
	}
	return &Builder{
		schema: append([]string(nil), schema...),
		specs:  specs,
		origin: origin,
	}, nil
}

// Schema returns the ordered feature names
func (b *Builder) Schema() []string {
	return append([]string(nil), b.schema...)
}

// Origin returns the trend anchor
func (b *Builder) Origin() models.Period {
	return b.origin
}

// MaxLookback is the largest number of prior months any feature needs
func (b *Builder) MaxLookback() int {
	m := 0
	for _, s := range b.specs {
		if s.lookback > m {
			m = s.lookback
		}
	}
	return m
}

// Row computes the vector for period p from history. It returns false when
// a feature cannot be computed because history lacks a required month.
func (b *Builder) Row(p models.Period, h History) ([]float64, bool) {
	row := make([]float64, len(b.specs))
	for i, s := range b.specs {
		v, ok := s.compute(b, p, h)
		if !ok {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}

// Missing returns the names in required that schema lacks, in order
func Missing(schema, required []string) []string {
	have := make(map[string]bool, len(schema))
	for _, s := range schema {
		have[s] = true
	}
	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	return missing
}
