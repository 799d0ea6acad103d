package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"tourism-forecast/internal/models"
)

// RawStore is the append-only raw arrivals file.
// Records are never rewritten; a record whose key already exists is skipped.
type RawStore struct {
	path string
}

// NewRawStore creates a raw store backed by path
func NewRawStore(path string) *RawStore {
	return &RawStore{path: path}
}

// Path returns the file location
func (s *RawStore) Path() string {
	return s.path
}

// ReadRows reads every data line as text. Lines with the wrong number of
// fields are returned with empty trailing values so the preprocessor can
// count them as dropped.
func (s *RawStore) ReadRows() ([]models.RawRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.NotFoundError{Resource: "raw dataset", ID: s.path}
		}
		return nil, fmt.Errorf("failed to open raw dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read raw header: %w", err)
	}
	idx, err := RawColumnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []models.RawRow
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			// Unbalanced quotes and similar: keep the line as an all-empty
			// row so it is counted as malformed rather than aborting.
			rows = append(rows, models.RawRow{Line: line})
			continue
		}
		rows = append(rows, models.RawRow{
			Line:     line,
			Year:     Field(rec, idx["year"]),
			Month:    Field(rec, idx["month"]),
			Country:  Field(rec, idx["country"]),
			Arrivals: Field(rec, idx["arrivals"]),
			Source:   Field(rec, idx["source"]),
		})
	}
	return rows, nil
}

// Keys returns the identity keys already present in the store
func (s *RawStore) Keys() (map[models.RecordKey]struct{}, error) {
	rows, err := s.ReadRows()
	if err != nil {
		if models.IsNotFound(err) {
			return map[models.RecordKey]struct{}{}, nil
		}
		return nil, err
	}
	keys := make(map[models.RecordKey]struct{}, len(rows))
	for i := range rows {
		rec, err := rows[i].ToRecord()
		if err != nil {
			continue
		}
		keys[rec.Key()] = struct{}{}
	}
	return keys, nil
}

// Append adds records whose key is not yet stored and returns the ones
// actually written.
func (s *RawStore) Append(records []models.RawArrivalRecord) ([]models.RawArrivalRecord, error) {
	existing, err := s.Keys()
	if err != nil {
		return nil, err
	}

	fresh := make([]models.RawArrivalRecord, 0, len(records))
	for _, rec := range records {
		k := rec.Key()
		if _, ok := existing[k]; ok {
			continue
		}
		existing[k] = struct{}{}
		fresh = append(fresh, rec)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raw directory: %w", err)
	}

	_, statErr := os.Stat(s.path)
	newFile := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw dataset for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(models.RawColumns); err != nil {
			return nil, fmt.Errorf("failed to write raw header: %w", err)
		}
	}
	for _, rec := range fresh {
		if err := w.Write(rawRecordFields(rec)); err != nil {
			return nil, fmt.Errorf("failed to append raw record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush raw dataset: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync raw dataset: %w", err)
	}
	return fresh, nil
}

func rawRecordFields(rec models.RawArrivalRecord) []string {
	arrivals := ""
	if rec.Arrivals != nil {
		arrivals = strconv.FormatFloat(*rec.Arrivals, 'f', -1, 64)
	}
	return []string{
		strconv.Itoa(rec.Year),
		strconv.Itoa(rec.Month),
		rec.Country,
		arrivals,
		rec.Source,
	}
}
