package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tourism-forecast/internal/features"
	"tourism-forecast/internal/models"
)

// CountryTotal is the total arrivals from one country
type CountryTotal struct {
	Country  string  `json:"country"`
	Arrivals float64 `json:"arrivals"`
}

// CountrySummary is the total and mean monthly arrivals of one country
type CountrySummary struct {
	Country string  `json:"country"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// PeriodValue is one point of a monthly series
type PeriodValue struct {
	Date     string  `json:"date"`
	Arrivals float64 `json:"arrivals"`
}

// DateRange spans the processed dataset
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Overview holds the headline numbers
type Overview struct {
	TotalArrivals      int64          `json:"total_arrivals"`
	AvgMonthlyArrivals int64          `json:"avg_monthly_arrivals"`
	Recent6Months      int64          `json:"recent_6_months"`
	TopCountries       []CountryTotal `json:"top_countries"`
	DateRange          DateRange      `json:"date_range"`
}

// CountryTrend is the monthly series of one country
type CountryTrend struct {
	Country string        `json:"country"`
	Trends  []PeriodValue `json:"trends"`
}

// MonthlyPattern is the mean arrivals of a calendar month
type MonthlyPattern struct {
	Month     int     `json:"month"`
	MonthName string  `json:"month_name"`
	Season    string  `json:"season"`
	Arrivals  float64 `json:"arrivals"`
}

// YearSummary compares one year with the others
type YearSummary struct {
	Year          int   `json:"year"`
	TotalArrivals int64 `json:"total_arrivals"`
	AvgMonthly    int64 `json:"avg_monthly"`
}

// RegionTotal is the total arrivals of a region
type RegionTotal struct {
	Region   string  `json:"region"`
	Arrivals float64 `json:"arrivals"`
}

// YearGrowth is the year-over-year change of yearly totals
type YearGrowth struct {
	Year      int     `json:"year"`
	Arrivals  float64 `json:"arrivals"`
	YoYGrowth float64 `json:"yoy_growth"`
}

// AnalyticsService answers read-only questions over the processed dataset
type AnalyticsService struct {
	snapshots *SnapshotStore
}

// NewAnalyticsService creates an analytics service
func NewAnalyticsService(snapshots *SnapshotStore) *AnalyticsService {
	return &AnalyticsService{snapshots: snapshots}
}

func (s *AnalyticsService) records() ([]models.ProcessedRecord, error) {
	snap := s.snapshots.Current()
	if len(snap.Records) == 0 {
		return nil, &models.NotFoundError{Resource: "processed dataset", ID: "current"}
	}
	return snap.Records, nil
}

func monthDate(p models.Period) string {
	return p.Time().Format("2006-01-02")
}

// Overview returns totals, the recent six-month window and the top ten
// countries
func (s *AnalyticsService) Overview() (*Overview, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}

	var total float64
	byPeriod := map[models.Period]float64{}
	minP, maxP := records[0].Period(), records[0].Period()
	for i := range records {
		p := records[i].Period()
		total += records[i].Arrivals
		byPeriod[p] += records[i].Arrivals
		if p.Before(minP) {
			minP = p
		}
		if p.After(maxP) {
			maxP = p
		}
	}

	cutoff := maxP.Add(-6)
	var recent float64
	for p, v := range byPeriod {
		if !p.Before(cutoff) {
			recent += v
		}
	}

	return &Overview{
		TotalArrivals:      int64(total),
		AvgMonthlyArrivals: int64(total / float64(len(byPeriod))),
		Recent6Months:      int64(recent),
		TopCountries:       topCountries(records, 10, nil),
		DateRange:          DateRange{Start: monthDate(minP), End: monthDate(maxP)},
	}, nil
}

// MonthlyTrends returns arrivals summed per month, optionally for one year
func (s *AnalyticsService) MonthlyTrends(year *int) ([]PeriodValue, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	return monthlySeries(records, func(r *models.ProcessedRecord) bool {
		return year == nil || r.Year == *year
	}), nil
}

// CountrySummaries returns every country ordered by total arrivals
func (s *AnalyticsService) CountrySummaries() ([]CountrySummary, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	totals := map[string]float64{}
	counts := map[string]int{}
	for i := range records {
		totals[records[i].Country] += records[i].Arrivals
		counts[records[i].Country]++
	}
	out := make([]CountrySummary, 0, len(totals))
	for c, t := range totals {
		out = append(out, CountrySummary{Country: c, Total: t, Average: t / float64(counts[c])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Country < out[j].Country
	})
	return out, nil
}

// CountryTrend returns the monthly series of one country
func (s *AnalyticsService) CountryTrend(country string) (*CountryTrend, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	trends := monthlySeries(records, func(r *models.ProcessedRecord) bool {
		return strings.EqualFold(r.Country, country)
	})
	if len(trends) == 0 {
		return nil, &models.NotFoundError{Resource: "country", ID: country}
	}
	return &CountryTrend{Country: country, Trends: trends}, nil
}

// SeasonalPatterns returns the mean arrivals per calendar month
func (s *AnalyticsService) SeasonalPatterns() ([]MonthlyPattern, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	var sums [13]float64
	var counts [13]int
	for i := range records {
		sums[records[i].Month] += records[i].Arrivals
		counts[records[i].Month]++
	}
	var out []MonthlyPattern
	for m := 1; m <= 12; m++ {
		if counts[m] == 0 {
			continue
		}
		out = append(out, MonthlyPattern{
			Month:     m,
			MonthName: time.Month(m).String(),
			Season:    features.Season(m),
			Arrivals:  sums[m] / float64(counts[m]),
		})
	}
	return out, nil
}

// TopCountries returns the limit countries with the most arrivals,
// optionally within one year
func (s *AnalyticsService) TopCountries(limit int, year *int) ([]CountryTotal, error) {
	if limit < 1 || limit > 100 {
		return nil, &models.ValidationError{Field: "limit", Value: fmt.Sprint(limit), Message: "must be between 1 and 100"}
	}
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	return topCountries(records, limit, year), nil
}

// YearComparison returns the total and mean monthly arrivals of each year
func (s *AnalyticsService) YearComparison() ([]YearSummary, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	totals := map[int]float64{}
	months := map[int]map[int]bool{}
	for i := range records {
		r := &records[i]
		totals[r.Year] += r.Arrivals
		if months[r.Year] == nil {
			months[r.Year] = map[int]bool{}
		}
		months[r.Year][r.Month] = true
	}
	out := make([]YearSummary, 0, len(totals))
	for y, t := range totals {
		out = append(out, YearSummary{
			Year:          y,
			TotalArrivals: int64(t),
			AvgMonthly:    int64(t / float64(len(months[y]))),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// RegionalTotals returns arrivals per region, largest first
func (s *AnalyticsService) RegionalTotals() ([]RegionTotal, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	totals := map[string]float64{}
	for i := range records {
		region := records[i].Region
		if region == "" {
			region = features.Region(records[i].Country)
		}
		totals[region] += records[i].Arrivals
	}
	out := make([]RegionTotal, 0, len(totals))
	for r, t := range totals {
		out = append(out, RegionTotal{Region: r, Arrivals: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Arrivals != out[j].Arrivals {
			return out[i].Arrivals > out[j].Arrivals
		}
		return out[i].Region < out[j].Region
	})
	return out, nil
}

// GrowthRates returns year-over-year growth of yearly totals. The first
// year has no predecessor and is omitted.
func (s *AnalyticsService) GrowthRates() ([]YearGrowth, error) {
	years, err := s.YearComparison()
	if err != nil {
		return nil, err
	}
	var out []YearGrowth
	for i := 1; i < len(years); i++ {
		prev := float64(years[i-1].TotalArrivals)
		if prev == 0 {
			continue
		}
		cur := float64(years[i].TotalArrivals)
		out = append(out, YearGrowth{
			Year:      years[i].Year,
			Arrivals:  cur,
			YoYGrowth: (cur - prev) / prev * 100,
		})
	}
	return out, nil
}

// AvailableYears lists the years present, ascending
func (s *AnalyticsService) AvailableYears() ([]int, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	var years []int
	for i := range records {
		if !seen[records[i].Year] {
			seen[records[i].Year] = true
			years = append(years, records[i].Year)
		}
	}
	sort.Ints(years)
	return years, nil
}

// AvailableCountries lists the countries present, sorted
func (s *AnalyticsService) AvailableCountries() ([]string, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var countries []string
	for i := range records {
		if !seen[records[i].Country] {
			seen[records[i].Country] = true
			countries = append(countries, records[i].Country)
		}
	}
	sort.Strings(countries)
	return countries, nil
}

func monthlySeries(records []models.ProcessedRecord, keep func(*models.ProcessedRecord) bool) []PeriodValue {
	sums := map[models.Period]float64{}
	for i := range records {
		if keep(&records[i]) {
			sums[records[i].Period()] += records[i].Arrivals
		}
	}
	periods := make([]models.Period, 0, len(sums))
	for p := range sums {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	out := make([]PeriodValue, len(periods))
	for i, p := range periods {
		out[i] = PeriodValue{Date: monthDate(p), Arrivals: sums[p]}
	}
	return out
}

func topCountries(records []models.ProcessedRecord, limit int, year *int) []CountryTotal {
	totals := map[string]float64{}
	for i := range records {
		if year != nil && records[i].Year != *year {
			continue
		}
		totals[records[i].Country] += records[i].Arrivals
	}
	out := make([]CountryTotal, 0, len(totals))
	for c, t := range totals {
		out = append(out, CountryTotal{Country: c, Arrivals: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Arrivals != out[j].Arrivals {
			return out[i].Arrivals > out[j].Arrivals
		}
		return out[i].Country < out[j].Country
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
