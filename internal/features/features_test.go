package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-forecast/internal/models"
)

func TestSeason(t *testing.T) {
	tests := []struct {
		month int
		want  string
	}{
		{1, models.SeasonNortheast},
		{2, models.SeasonNortheast},
		{3, models.SeasonInter},
		{4, models.SeasonInter},
		{5, models.SeasonSouthwest},
		{9, models.SeasonSouthwest},
		{10, models.SeasonNortheast},
		{12, models.SeasonNortheast},
		{0, ""},
		{13, ""},
	}
	for _, tt := range tests {
		if got := Season(tt.month); got != tt.want {
			t.Errorf("Season(%d) = %q, want %q", tt.month, got, tt.want)
		}
	}
}

func TestRegion(t *testing.T) {
	assert.Equal(t, "Asia", Region("India"))
	assert.Equal(t, "Europe", Region(" united kingdom "))
	assert.Equal(t, "Middle East", Region("UAE"))
	assert.Equal(t, models.RegionOther, Region("Atlantis"))
}

func TestMonthEncoding(t *testing.T) {
	assert.InDelta(t, 0.0, MonthSin(12), 1e-12)
	assert.InDelta(t, 1.0, MonthCos(12), 1e-12)
	assert.InDelta(t, 1.0, MonthSin(3), 1e-12)
	for m := 1; m <= 12; m++ {
		assert.InDelta(t, 1.0, math.Hypot(MonthSin(m), MonthCos(m)), 1e-12)
	}
}

func TestHolidayCalendar(t *testing.T) {
	hc := NewHolidayCalendar([]string{"2024-04-13", "2024-04-14", "2024-05-01", "bogus"})
	assert.Equal(t, 2, hc.Count(models.Period{Year: 2024, Month: 4}))
	assert.Equal(t, 1, hc.Count(models.Period{Year: 2024, Month: 5}))
	assert.Equal(t, 0, hc.Count(models.Period{Year: 2024, Month: 6}))

	var nilCal *HolidayCalendar
	assert.Equal(t, 0, nilCal.Count(models.Period{Year: 2024, Month: 4}))
}

func TestNewBuilder_Validation(t *testing.T) {
	origin := models.Period{Year: 2020, Month: 1}

	_, err := NewBuilder(nil, origin)
	assert.True(t, models.IsSchemaMismatch(err))

	_, err = NewBuilder([]string{Lag1, "weather"}, origin)
	var sm *models.SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, []string{"weather"}, sm.Unknown)

	_, err = NewBuilder([]string{Lag1, Lag1}, origin)
	assert.True(t, models.IsSchemaMismatch(err))

	b, err := NewBuilder(DefaultSchema, origin)
	require.NoError(t, err)
	assert.Equal(t, 12, b.MaxLookback())
	assert.Equal(t, DefaultSchema, b.Schema())
}

func TestBuilder_Row(t *testing.T) {
	origin := models.Period{Year: 2020, Month: 1}
	var points []models.SeriesPoint
	for i := 0; i < 14; i++ {
		points = append(points, models.SeriesPoint{Period: origin.Add(i), Value: float64(100 + i)})
	}
	h := NewHistory(points)

	b, err := NewBuilder([]string{Trend, Lag1, Lag12, RollingAvg3m, SeasonNortheast, Quarter}, origin)
	require.NoError(t, err)

	// 2021-01 has a full year of history behind it
	p := models.Period{Year: 2021, Month: 1}
	row, ok := b.Row(p, h)
	require.True(t, ok)
	assert.Equal(t, []float64{12, 111, 100, 110, 1, 1}, row)

	// 2020-06 lacks lag_12
	_, ok = b.Row(models.Period{Year: 2020, Month: 6}, h)
	assert.False(t, ok)

	// predictions appended to history feed later rows
	next := models.Period{Year: 2021, Month: 3}
	h[next.Add(-1)] = 500
	row, ok = b.Row(next, h)
	require.True(t, ok)
	assert.Equal(t, 500.0, row[1])
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []string{Lag12}, Missing([]string{Trend, Lag1}, []string{Lag1, Lag12}))
	assert.Nil(t, Missing(DefaultSchema, []string{Trend}))
}
