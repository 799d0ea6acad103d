package collector

import (
	"context"

	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
)

// Request describes what to collect
type Request struct {
	StartYear int
	EndYear   int
	// EndMonth is the last month collected in EndYear
	EndMonth  int
	Countries []string
}

// InRange reports whether p falls within the requested years
func (r Request) InRange(p models.Period) bool {
	start := models.Period{Year: r.StartYear, Month: 1}
	end := models.Period{Year: r.EndYear, Month: r.EndMonth}
	return models.PeriodRange{Start: start, End: end}.Contains(p)
}

// Source produces raw arrival records
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]models.RawArrivalRecord, error)
}

// TableResult is the outcome of parsing one delimited table
type TableResult struct {
	Records []models.RawArrivalRecord
	Invalid int
}

// ParseTable converts a header plus data rows into raw records. Rows that
// fail the parse rule are counted and skipped. source overrides the table's
// own source column.
func ParseTable(table [][]string, source string) (*TableResult, error) {
	res := &TableResult{}
	if len(table) == 0 {
		return res, nil
	}
	idx, err := storage.RawColumnIndex(table[0])
	if err != nil {
		return nil, err
	}

	for _, line := range table[1:] {
		if isBlank(line) {
			continue
		}
		row := models.RawRow{
			Year:     storage.Field(line, idx["year"]),
			Month:    storage.Field(line, idx["month"]),
			Country:  storage.Field(line, idx["country"]),
			Arrivals: storage.Field(line, idx["arrivals"]),
			Source:   source,
		}
		rec, err := row.ToRecord()
		if err != nil {
			res.Invalid++
			continue
		}
		res.Records = append(res.Records, *rec)
	}
	return res, nil
}

func isBlank(line []string) bool {
	for _, c := range line {
		if c != "" {
			return false
		}
	}
	return true
}
