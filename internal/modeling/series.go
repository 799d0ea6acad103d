package modeling

import (
	"fmt"
	"sort"
	"strings"

	"tourism-forecast/internal/models"
)

// Aggregate collapses processed records into one monthly series: the sum
// over all countries, or only the given country when set. The result is
// sorted by period.
func Aggregate(records []models.ProcessedRecord, country string) []models.SeriesPoint {
	sums := map[models.Period]float64{}
	for i := range records {
		r := &records[i]
		if country != "" && !strings.EqualFold(r.Country, country) {
			continue
		}
		sums[r.Period()] += r.Arrivals
	}

	series := make([]models.SeriesPoint, 0, len(sums))
	for p, v := range sums {
		series = append(series, models.SeriesPoint{Period: p, Value: v})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Period.Before(series[j].Period)
	})
	return series
}

// Gaps returns the months missing between the first and last period of a
// sorted series
func Gaps(series []models.SeriesPoint) []models.Period {
	var gaps []models.Period
	for i := 1; i < len(series); i++ {
		for p := series[i-1].Period.Next(); p.Before(series[i].Period); p = p.Next() {
			gaps = append(gaps, p)
		}
	}
	return gaps
}

func describeGaps(gaps []models.Period) string {
	const shown = 5
	names := make([]string, 0, shown)
	for i, p := range gaps {
		if i == shown {
			break
		}
		names = append(names, p.String())
	}
	s := strings.Join(names, ", ")
	if len(gaps) > shown {
		s += fmt.Sprintf(" and %d more", len(gaps)-shown)
	}
	return s
}
