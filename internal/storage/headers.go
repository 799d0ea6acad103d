package storage

import (
	"fmt"
	"strings"

	"tourism-forecast/internal/models"
)

var headerAliases = map[string]string{
	"country_of_origin": "country",
	"origin":            "country",
	"nationality":       "country",
	"arrival_count":     "arrivals",
	"tourist_arrivals":  "arrivals",
	"count":             "arrivals",
}

// NormalizeHeader maps a CSV or spreadsheet header cell to a canonical
// column name: lower case, underscores for spaces, known aliases resolved.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.Join(strings.Fields(h), "_")
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// RawColumnIndex resolves the raw columns in header. source is optional
// and maps to -1 when absent.
func RawColumnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	for _, col := range models.RawColumns {
		if _, ok := idx[col]; ok {
			continue
		}
		if col == "source" {
			idx[col] = -1
			continue
		}
		return nil, &models.ValidationError{
			Field:   "header",
			Value:   strings.Join(header, ","),
			Message: fmt.Sprintf("missing required column %q", col),
		}
	}
	return idx, nil
}

// Field returns rec[i], or "" when i is out of range
func Field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
