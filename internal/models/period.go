package models

import (
	"fmt"
	"time"
)

// Period is a calendar month. The zero value is not a valid period.
// Periods encode as "YYYY-MM" in JSON.
type Period struct {
	Year  int
	Month int
}

// NewPeriod validates year and month and returns the period
func NewPeriod(year, month int) (Period, error) {
	if year < 1900 || year > 2200 {
		return Period{}, &ValidationError{
			Field:   "year",
			Value:   fmt.Sprint(year),
			Message: "year out of range [1900, 2200]",
		}
	}
	if month < 1 || month > 12 {
		return Period{}, &ValidationError{
			Field:   "month",
			Value:   fmt.Sprint(month),
			Message: "month out of range [1, 12]",
		}
	}
	return Period{Year: year, Month: month}, nil
}

// ParsePeriod parses a YYYY-MM string
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &ValidationError{
			Field:   "period",
			Value:   s,
			Message: "invalid period format, expected YYYY-MM",
		}
	}
	return NewPeriod(t.Year(), int(t.Month()))
}

// PeriodFromIndex is the inverse of Index.
func PeriodFromIndex(idx int) Period {
	return Period{Year: idx / 12, Month: idx%12 + 1}
}

// Index returns a month ordinal: consecutive months differ by one.
func (p Period) Index() int {
	return p.Year*12 + p.Month - 1
}

// Add returns the period n months later (n may be negative).
func (p Period) Add(n int) Period {
	return PeriodFromIndex(p.Index() + n)
}

// Next returns the following month.
func (p Period) Next() Period {
	return p.Add(1)
}

// Sub returns the number of months from o to p.
func (p Period) Sub(o Period) int {
	return p.Index() - o.Index()
}

// Before reports whether p is earlier than o.
func (p Period) Before(o Period) bool {
	return p.Index() < o.Index()
}

// After reports whether p is later than o.
func (p Period) After(o Period) bool {
	return p.Index() > o.Index()
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Time returns the first instant of the month in UTC.
func (p Period) Time() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Quarter returns 1..4.
func (p Period) Quarter() int {
	return (p.Month-1)/3 + 1
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// MarshalText encodes the period as YYYY-MM.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a YYYY-MM period.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PeriodRange is an inclusive span of months.
type PeriodRange struct {
	Start Period `json:"start"`
	End   Period `json:"end"`
}

// Contains reports whether p lies within the range.
func (r PeriodRange) Contains(p Period) bool {
	return !p.Before(r.Start) && !p.After(r.End)
}

// Months returns the number of months covered.
func (r PeriodRange) Months() int {
	return r.End.Sub(r.Start) + 1
}
