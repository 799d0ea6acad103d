package modeling

import (
	"math"
	"sort"
	"strings"

	"tourism-forecast/internal/models"
)

// Evaluate computes MAE, RMSE and MAPE (percent). The MAPE denominator is
// max(|actual|, 1) so months with zero arrivals stay finite.
func Evaluate(actual, predicted []float64) models.Metrics {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return models.Metrics{MAE: math.NaN(), RMSE: math.NaN(), MAPE: math.NaN()}
	}
	var absSum, sqSum, pctSum float64
	for i := range actual {
		e := actual[i] - predicted[i]
		absSum += math.Abs(e)
		sqSum += e * e
		pctSum += math.Abs(e) / math.Max(math.Abs(actual[i]), 1)
	}
	fn := float64(n)
	return models.Metrics{
		MAE:  absSum / fn,
		RMSE: math.Sqrt(sqSum / fn),
		MAPE: pctSum / fn * 100,
	}
}

// Select returns the kind of the best successful candidate: lowest MAPE,
// then lowest RMSE, then kind name. ok is false when every candidate failed.
func Select(candidates []models.CandidateResult) (string, models.Metrics, bool) {
	ok := make([]models.CandidateResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Metrics != nil && !math.IsNaN(c.Metrics.MAPE) {
			ok = append(ok, c)
		}
	}
	if len(ok) == 0 {
		return "", models.Metrics{}, false
	}
	sort.SliceStable(ok, func(i, j int) bool {
		a, b := ok[i], ok[j]
		if a.Metrics.MAPE != b.Metrics.MAPE {
			return a.Metrics.MAPE < b.Metrics.MAPE
		}
		if a.Metrics.RMSE != b.Metrics.RMSE {
			return a.Metrics.RMSE < b.Metrics.RMSE
		}
		return strings.Compare(a.Kind, b.Kind) < 0
	})
	return ok[0].Kind, *ok[0].Metrics, true
}
