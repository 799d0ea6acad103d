package modeling

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"tourism-forecast/internal/models"
)

// ridge is an L2-regularized linear regression on standardized features.
// The intercept is not penalized.
type ridge struct {
	Lambda    float64   `json:"lambda"`
	Names     []string  `json:"features"`
	Means     []float64 `json:"means"`
	Scales    []float64 `json:"scales"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func newRidge(lambda float64) *ridge {
	return &ridge{Lambda: lambda}
}

func (m *ridge) Kind() string { return models.KindRidge }

func (m *ridge) Features() []string { return m.Names }

func (m *ridge) Params() (json.RawMessage, error) { return json.Marshal(m) }

func (m *ridge) Fit(schema []string, X [][]float64, y []float64) error {
	n, p := len(X), len(schema)
	if n == 0 || n != len(y) {
		return fmt.Errorf("ridge: need matching non-empty X and y, got %d and %d", n, len(y))
	}

	means := make([]float64, p)
	scales := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		means[j], scales[j] = mean, std
	}

	z := mat.NewDense(n, p, nil)
	for i := range X {
		for j := 0; j < p; j++ {
			z.Set(i, j, (X[i][j]-means[j])/scales[j])
		}
	}
	ybar := stat.Mean(y, nil)
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-ybar)
	}

	var a mat.Dense
	a.Mul(z.T(), z)
	for j := 0; j < p; j++ {
		a.Set(j, j, a.At(j, j)+m.Lambda)
	}
	var b mat.VecDense
	b.MulVec(z.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&a, &b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("ridge: singular system: %w", err)
		}
		if math.IsInf(float64(cond), 1) {
			return fmt.Errorf("ridge: singular system: %w", err)
		}
	}

	m.Names = append([]string(nil), schema...)
	m.Means = means
	m.Scales = scales
	m.Coef = make([]float64, p)
	for j := 0; j < p; j++ {
		c := beta.AtVec(j)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return errors.New("ridge: solution is not finite")
		}
		m.Coef[j] = c
	}
	m.Intercept = ybar
	return nil
}

func (m *ridge) Predict(x []float64) float64 {
	v := m.Intercept
	for j, c := range m.Coef {
		v += c * (x[j] - m.Means[j]) / m.Scales[j]
	}
	return v
}
