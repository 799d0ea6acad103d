package preprocess

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"tourism-forecast/internal/features"
	"tourism-forecast/internal/models"
)

// derive computes the engineered columns of one country's cleaned series.
// Lags are calendar lookups: a gap in the series yields 0, as does a month
// before the first observation. Year-over-year growth is left nil when the
// prior-year month is absent or zero.
func (p *Preprocessor) derive(country string, cs countrySeries) []models.ProcessedRecord {
	values := make(map[models.Period]float64, len(cs))
	for _, r := range cs {
		values[r.period] = r.value
	}
	region := features.Region(country)

	out := make([]models.ProcessedRecord, 0, len(cs))
	for _, r := range cs {
		per := r.period
		rec := models.ProcessedRecord{
			Year:         per.Year,
			Month:        per.Month,
			Country:      country,
			Arrivals:     round(r.value),
			Source:       r.source,
			Region:       region,
			Season:       features.Season(per.Month),
			Quarter:      per.Quarter(),
			MonthSin:     features.MonthSin(per.Month),
			MonthCos:     features.MonthCos(per.Month),
			HolidayCount: p.holidays.Count(per),
			Imputed:      r.imputed,
			Clipped:      r.clipped,
		}

		prev, hasPrev := values[per.Add(-1)]
		if hasPrev {
			rec.Lag1 = round(prev)
			if prev > 0 {
				rec.MoMGrowth = round((r.value - prev) / prev * 100)
			}
		}

		if ly, ok := values[per.Add(-12)]; ok {
			rec.Lag12 = round(ly)
			if ly > 0 {
				g := round((r.value - ly) / ly * 100)
				rec.YoYGrowth = &g
				rec.HasYoY = true
			}
		}

		window := make([]float64, 0, 3)
		for k := 0; k < 3; k++ {
			if v, ok := values[per.Add(-k)]; ok {
				window = append(window, v)
			}
		}
		rec.RollingAvg3m = round(stat.Mean(window, nil))
		if len(window) > 1 {
			rec.RollingStd3m = round(stat.StdDev(window, nil))
		}

		out = append(out, rec)
	}
	return out
}

// round keeps the six decimals the processed file is written with.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
