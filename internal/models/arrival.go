package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Collection sources. File sources use "file:<name>".
const (
	SourceHTTP       = "http"
	SourceSynthetic  = "synthetic"
	SourceFilePrefix = "file:"
)

// RawArrivalRecord is one collected (year, month, country) observation.
// Arrivals is nil when the source reported no value.
type RawArrivalRecord struct {
	Year     int      `json:"year" db:"year"`
	Month    int      `json:"month" db:"month"`
	Country  string   `json:"country" db:"country"`
	Arrivals *float64 `json:"arrivals,omitempty" db:"arrivals"`
	Source   string   `json:"source" db:"source"`
}

// Period returns the record's month
func (r *RawArrivalRecord) Period() Period {
	return Period{Year: r.Year, Month: r.Month}
}

// Key identifies a record in the append-only raw store
func (r *RawArrivalRecord) Key() RecordKey {
	return RecordKey{Year: r.Year, Month: r.Month, Country: r.Country, Source: r.Source}
}

// RecordKey is the identity of a raw record
type RecordKey struct {
	Year    int
	Month   int
	Country string
	Source  string
}

// RawRow is a single line of the raw arrivals file, still as text.
// Used by the preprocessor before any type coercion.
type RawRow struct {
	Line     int
	Year     string
	Month    string
	Country  string
	Arrivals string
	Source   string
}

// Drop reasons reported by ToRecord through ValidationError.Field.
const (
	FieldYear     = "year"
	FieldMonth    = "month"
	FieldCountry  = "country"
	FieldArrivals = "arrivals"
)

// ToRecord converts a RawRow to a RawArrivalRecord.
// Empty, "NA" and "NaN" arrivals are treated as missing (nil), anything
// else that is not a non-negative number is a ValidationError.
func (r *RawRow) ToRecord() (*RawArrivalRecord, error) {
	year, err := strconv.Atoi(strings.TrimSpace(r.Year))
	if err != nil {
		return nil, &ValidationError{Field: FieldYear, Value: r.Year, Message: "invalid year"}
	}
	month, err := parseMonth(r.Month)
	if err != nil {
		return nil, &ValidationError{Field: FieldMonth, Value: r.Month, Message: "invalid month"}
	}
	if _, err := NewPeriod(year, month); err != nil {
		return nil, err
	}

	country := strings.TrimSpace(r.Country)
	if country == "" {
		return nil, &ValidationError{Field: FieldCountry, Value: r.Country, Message: "empty country"}
	}

	rec := &RawArrivalRecord{
		Year:    year,
		Month:   month,
		Country: country,
		Source:  strings.TrimSpace(r.Source),
	}

	if IsMissing(r.Arrivals) {
		return rec, nil
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(r.Arrivals), ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		return nil, &ValidationError{Field: FieldArrivals, Value: r.Arrivals, Message: "non-numeric arrivals"}
	}
	if v < 0 {
		return nil, &ValidationError{Field: FieldArrivals, Value: r.Arrivals, Message: "negative arrivals"}
	}
	rec.Arrivals = &v
	return rec, nil
}

// IsMissing reports whether a textual arrivals value denotes a missing value
func IsMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null", "n/a":
		return true
	}
	return false
}

// parseMonth accepts 1..12 or an English month name ("Jan", "January").
func parseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if m, err := strconv.Atoi(s); err == nil {
		return m, nil
	}
	name := cases.Title(language.English).String(strings.ToLower(s))
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, name); err == nil {
			return int(t.Month()), nil
		}
	}
	return 0, strconv.ErrSyntax
}
