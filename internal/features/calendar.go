package features

import (
	"math"
	"strings"
	"time"

	"tourism-forecast/internal/models"
)

var seasonByMonth = [13]string{
	1: models.SeasonNortheast, 2: models.SeasonNortheast,
	3: models.SeasonInter, 4: models.SeasonInter,
	5: models.SeasonSouthwest, 6: models.SeasonSouthwest, 7: models.SeasonSouthwest,
	8: models.SeasonSouthwest, 9: models.SeasonSouthwest,
	10: models.SeasonNortheast, 11: models.SeasonNortheast, 12: models.SeasonNortheast,
}

// Season returns the monsoon season of a calendar month
func Season(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return seasonByMonth[month]
}

// MonthSin is the sine component of the cyclical month encoding
func MonthSin(month int) float64 { return math.Sin(2 * math.Pi * float64(month) / 12) }

// MonthCos is the cosine component of the cyclical month encoding
func MonthCos(month int) float64 { return math.Cos(2 * math.Pi * float64(month) / 12) }

var regions = map[string][]string{
	"Asia": {"India", "China", "Japan", "South Korea", "Thailand", "Malaysia",
		"Singapore", "Indonesia", "Philippines", "Vietnam", "Bangladesh",
		"Pakistan", "Hong Kong", "Taiwan", "Myanmar", "Cambodia", "Maldives"},
	"Europe": {"United Kingdom", "Germany", "France", "Russia", "Italy",
		"Netherlands", "Spain", "Switzerland", "Belgium", "Austria",
		"Poland", "Ukraine", "Czech Republic", "Sweden", "Denmark"},
	"Middle East": {"Saudi Arabia", "UAE", "Qatar", "Kuwait", "Oman",
		"Bahrain", "Israel", "Turkey", "Iran", "Jordan"},
	"Americas": {"United States", "Canada", "Brazil", "Argentina", "Mexico",
		"Colombia", "Chile", "Peru"},
	"Oceania": {"Australia", "New Zealand"},
	"Africa":  {"South Africa", "Egypt", "Kenya", "Nigeria", "Morocco"},
}

var regionByCountry = func() map[string]string {
	m := make(map[string]string)
	for region, countries := range regions {
		for _, c := range countries {
			m[strings.ToLower(c)] = region
		}
	}
	return m
}()

// Region returns the world region of a country, or models.RegionOther
func Region(country string) string {
	if r, ok := regionByCountry[strings.ToLower(strings.TrimSpace(country))]; ok {
		return r
	}
	return models.RegionOther
}

// HolidayCalendar counts public holidays per month
type HolidayCalendar struct {
	counts map[models.Period]int
}

// NewHolidayCalendar parses YYYY-MM-DD dates. Unparseable dates are ignored;
// config validation rejects them earlier.
func NewHolidayCalendar(dates []string) *HolidayCalendar {
	hc := &HolidayCalendar{counts: make(map[models.Period]int)}
	for _, d := range dates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		hc.counts[models.Period{Year: t.Year(), Month: int(t.Month())}]++
	}
	return hc
}

// Count returns the number of holidays in p
func (hc *HolidayCalendar) Count(p models.Period) int {
	if hc == nil {
		return 0
	}
	return hc.counts[p]
}
