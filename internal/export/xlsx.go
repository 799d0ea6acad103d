// Package export writes datasets and forecasts as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
)

// Sheet names
const (
	ProcessedSheet = "processed"
	ForecastSheet  = "forecast"
)

// WriteDataFrame saves df as a single-sheet workbook at path. The file is
// replaced atomically.
func WriteDataFrame(df dataframe.DataFrame, sheet, path string) error {
	if df.Err != nil {
		return fmt.Errorf("invalid dataframe: %w", df.Err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	names := df.Names()
	for i, name := range names {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header %s: %w", name, err)
		}
	}
	for colIdx, name := range names {
		col := df.Col(name)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, cellValue(col, rowIdx)); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
}

// cellValue leaves NaN cells empty
func cellValue(s series.Series, i int) interface{} {
	e := s.Elem(i)
	if e.IsNA() {
		return nil
	}
	return e.Val()
}

// Processed exports the processed dataset
func Processed(path string, records []models.ProcessedRecord) error {
	return WriteDataFrame(storage.ProcessedDataFrame(records), ProcessedSheet, path)
}

// Forecast exports a forecast result
func Forecast(path string, res *models.ForecastResult) error {
	n := len(res.Points)
	periods := make([]string, n)
	predicted := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i, pt := range res.Points {
		periods[i] = pt.Period.String()
		predicted[i] = pt.Predicted
		lower[i] = pt.Lower
		upper[i] = pt.Upper
	}
	df := dataframe.New(
		series.New(periods, series.String, "period"),
		series.New(predicted, series.Float, "predicted"),
		series.New(lower, series.Float, "lower"),
		series.New(upper, series.Float, "upper"),
	)
	return WriteDataFrame(df, ForecastSheet, path)
}
