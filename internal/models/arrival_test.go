package models

import (
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRawRow_ToRecord tests the parse rule for raw rows
func TestRawRow_ToRecord(t *testing.T) {
	tests := []struct {
		name        string
		row         RawRow
		wantErr     bool
		wantField   string
		checkValues func(*testing.T, *RawArrivalRecord)
	}{
		{
			name: "valid record",
			row:  RawRow{Year: "2023", Month: "1", Country: " India ", Arrivals: "15000", Source: "http"},
			checkValues: func(t *testing.T, r *RawArrivalRecord) {
				if r.Year != 2023 || r.Month != 1 {
					t.Errorf("period = %d-%d, want 2023-1", r.Year, r.Month)
				}
				if r.Country != "India" {
					t.Errorf("Country = %q, want %q", r.Country, "India")
				}
				if r.Arrivals == nil || *r.Arrivals != 15000 {
					t.Errorf("Arrivals = %v, want 15000", r.Arrivals)
				}
			},
		},
		{
			name: "month name",
			row:  RawRow{Year: "2023", Month: "March", Country: "China", Arrivals: "10", Source: "file:a.csv"},
			checkValues: func(t *testing.T, r *RawArrivalRecord) {
				if r.Month != 3 {
					t.Errorf("Month = %d, want 3", r.Month)
				}
			},
		},
		{
			name: "short month name",
			row:  RawRow{Year: "2023", Month: "dec", Country: "China", Arrivals: "10"},
			checkValues: func(t *testing.T, r *RawArrivalRecord) {
				if r.Month != 12 {
					t.Errorf("Month = %d, want 12", r.Month)
				}
			},
		},
		{
			name: "thousands separator",
			row:  RawRow{Year: "2023", Month: "2", Country: "China", Arrivals: "12,500"},
			checkValues: func(t *testing.T, r *RawArrivalRecord) {
				if r.Arrivals == nil || *r.Arrivals != 12500 {
					t.Errorf("Arrivals = %v, want 12500", r.Arrivals)
				}
			},
		},
		{
			name: "missing arrivals NA",
			row:  RawRow{Year: "2023", Month: "4", Country: "Japan", Arrivals: "NA"},
			checkValues: func(t *testing.T, r *RawArrivalRecord) {
				if r.Arrivals != nil {
					t.Error("Arrivals should be nil for NA")
				}
			},
		},
		{
			name: "missing arrivals empty",
			row:  RawRow{Year: "2023", Month: "4", Country: "Japan", Arrivals: ""},
			checkValues: func(t *testing.T, r *RawArrivalRecord) {
				if r.Arrivals != nil {
					t.Error("Arrivals should be nil for empty value")
				}
			},
		},
		{name: "bad year", row: RawRow{Year: "20x3", Month: "1", Country: "India", Arrivals: "1"}, wantErr: true, wantField: FieldYear},
		{name: "year out of range", row: RawRow{Year: "1800", Month: "1", Country: "India", Arrivals: "1"}, wantErr: true, wantField: FieldYear},
		{name: "month 13", row: RawRow{Year: "2023", Month: "13", Country: "India", Arrivals: "1"}, wantErr: true, wantField: FieldMonth},
		{name: "bad month", row: RawRow{Year: "2023", Month: "Smarch", Country: "India", Arrivals: "1"}, wantErr: true, wantField: FieldMonth},
		{name: "empty country", row: RawRow{Year: "2023", Month: "1", Country: "  ", Arrivals: "1"}, wantErr: true, wantField: FieldCountry},
		{name: "non-numeric arrivals", row: RawRow{Year: "2023", Month: "1", Country: "India", Arrivals: "lots"}, wantErr: true, wantField: FieldArrivals},
		{name: "negative arrivals", row: RawRow{Year: "2023", Month: "1", Country: "India", Arrivals: "-5"}, wantErr: true, wantField: FieldArrivals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tt.row.ToRecord()

			if (err != nil) != tt.wantErr {
				t.Errorf("ToRecord() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantField, ve.Field)
				return
			}
			if tt.checkValues != nil {
				tt.checkValues(t, rec)
			}
		})
	}
}

func TestPeriod(t *testing.T) {
	p := Period{Year: 2023, Month: 12}

	assert.Equal(t, Period{Year: 2024, Month: 1}, p.Next())
	assert.Equal(t, Period{Year: 2022, Month: 11}, p.Add(-13))
	assert.Equal(t, 13, p.Next().Next().Sub(Period{Year: 2022, Month: 12}))
	assert.True(t, p.Before(p.Next()))
	assert.True(t, p.Next().After(p))
	assert.Equal(t, 4, p.Quarter())
	assert.Equal(t, "2023-12", p.String())
	assert.Equal(t, p, PeriodFromIndex(p.Index()))

	parsed, err := ParsePeriod("2024-03")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: 3}, parsed)

	_, err = ParsePeriod("2024/03")
	assert.True(t, IsValidation(err))
}

func TestPeriod_JSON(t *testing.T) {
	pt := ForecastPoint{Period: Period{Year: 2025, Month: 2}, Predicted: 10}
	b, err := json.Marshal(pt)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"period":"2025-02"`)

	var back ForecastPoint
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, pt, back)
}

func TestPeriodRange(t *testing.T) {
	r := PeriodRange{Start: Period{2023, 1}, End: Period{2024, 12}}
	assert.Equal(t, 24, r.Months())
	assert.True(t, r.Contains(Period{2023, 1}))
	assert.True(t, r.Contains(Period{2024, 12}))
	assert.False(t, r.Contains(Period{2025, 1}))
	assert.False(t, r.Contains(Period{2022, 12}))
}

// TestErrors tests error classification
func TestErrors(t *testing.T) {
	err := &ValidationError{
		Field:   "year",
		Value:   "invalid",
		Message: "invalid year",
	}
	if err.Error() != "invalid year" {
		t.Errorf("Error() = %v, want %v", err.Error(), "invalid year")
	}
	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}

	sm := &SchemaMismatchError{Missing: []string{"lag_12"}, Unknown: []string{"weather"}}
	assert.Contains(t, sm.Error(), "missing: lag_12")
	assert.Contains(t, sm.Error(), "unknown: weather")
	assert.True(t, IsSchemaMismatch(fmt.Errorf("forecast: %w", sm)))
	assert.False(t, sm.IsTransient())

	nf := &NotFoundError{Resource: "artifact", ID: "x"}
	assert.Equal(t, "artifact not found: x", nf.Error())
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", nf)))

	ide := &InsufficientDataError{Stage: "modeling", Have: 3, Need: 6}
	assert.Equal(t, "modeling: insufficient data: have 3 rows, need at least 6", ide.Error())
}
