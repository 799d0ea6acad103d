package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"tourism-forecast/internal/models"
	"tourism-forecast/pkg/logging"
)

// FileSource reads every *.csv and *.xlsx file dropped into the inbox
// directory. Each file becomes its own source ("file:<name>").
type FileSource struct {
	dir    string
	logger *logging.StructuredLogger
}

// NewFileSource creates a file source over dir
func NewFileSource(dir string, logger *logging.StructuredLogger) *FileSource {
	return &FileSource{dir: dir, logger: logger}
}

// Name implements Source
func (s *FileSource) Name() string { return "file" }

// Fetch implements Source. A missing inbox directory yields no records.
func (s *FileSource) Fetch(ctx context.Context, req Request) ([]models.RawArrivalRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".xlsx":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		records []models.RawArrivalRecord
		errs    []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		path := filepath.Join(s.dir, name)
		table, err := readTable(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		res, err := ParseTable(table, models.SourceFilePrefix+name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		kept := 0
		for _, rec := range res.Records {
			if req.InRange(rec.Period()) {
				records = append(records, rec)
				kept++
			}
		}

		s.logger.Info(ctx, "[COLLECT_FILE] Read inbox file", logging.Fields{
			"file":    name,
			"records": kept,
			"invalid": res.Invalid,
			"stage":   "FILE_SOURCE",
		})
	}

	return records, errors.Join(errs...)
}

func readTable(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

// readXLSX returns the rows of the first sheet
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
