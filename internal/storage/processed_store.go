package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"tourism-forecast/internal/models"
)

var processedTypes = map[string]series.Type{
	"year":           series.Int,
	"month":          series.Int,
	"country":        series.String,
	"arrivals":       series.Float,
	"source":         series.String,
	"region":         series.String,
	"season":         series.String,
	"quarter":        series.Int,
	"month_sin":      series.Float,
	"month_cos":      series.Float,
	"holiday_count":  series.Int,
	"lag_1":          series.Float,
	"lag_12":         series.Float,
	"rolling_avg_3m": series.Float,
	"rolling_std_3m": series.Float,
	"mom_growth":     series.Float,
	"yoy_growth":     series.Float,
	"has_yoy":        series.Int,
	"imputed":        series.Int,
	"clipped":        series.Int,
}

// ProcessedDataFrame converts records to a dataframe in ProcessedColumns order
func ProcessedDataFrame(records []models.ProcessedRecord) dataframe.DataFrame {
	n := len(records)
	var (
		years, months, quarters, holidays   = make([]int, n), make([]int, n), make([]int, n), make([]int, n)
		hasYoY, imputed, clipped            = make([]int, n), make([]int, n), make([]int, n)
		countries, sources, regions, season = make([]string, n), make([]string, n), make([]string, n), make([]string, n)
		arrivals, msin, mcos                = make([]float64, n), make([]float64, n), make([]float64, n)
		lag1, lag12, ravg, rstd             = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
		mom, yoy                            = make([]float64, n), make([]float64, n)
	)

	for i, r := range records {
		years[i], months[i], quarters[i], holidays[i] = r.Year, r.Month, r.Quarter, r.HolidayCount
		hasYoY[i], imputed[i], clipped[i] = boolInt(r.HasYoY), boolInt(r.Imputed), boolInt(r.Clipped)
		countries[i], sources[i], regions[i], season[i] = r.Country, r.Source, r.Region, r.Season
		arrivals[i], msin[i], mcos[i] = r.Arrivals, r.MonthSin, r.MonthCos
		lag1[i], lag12[i], ravg[i], rstd[i] = r.Lag1, r.Lag12, r.RollingAvg3m, r.RollingStd3m
		mom[i] = r.MoMGrowth
		yoy[i] = math.NaN()
		if r.YoYGrowth != nil {
			yoy[i] = *r.YoYGrowth
		}
	}

	return dataframe.New(
		series.New(years, series.Int, "year"),
		series.New(months, series.Int, "month"),
		series.New(countries, series.String, "country"),
		series.New(arrivals, series.Float, "arrivals"),
		series.New(sources, series.String, "source"),
		series.New(regions, series.String, "region"),
		series.New(season, series.String, "season"),
		series.New(quarters, series.Int, "quarter"),
		series.New(msin, series.Float, "month_sin"),
		series.New(mcos, series.Float, "month_cos"),
		series.New(holidays, series.Int, "holiday_count"),
		series.New(lag1, series.Float, "lag_1"),
		series.New(lag12, series.Float, "lag_12"),
		series.New(ravg, series.Float, "rolling_avg_3m"),
		series.New(rstd, series.Float, "rolling_std_3m"),
		series.New(mom, series.Float, "mom_growth"),
		series.New(yoy, series.Float, "yoy_growth"),
		series.New(hasYoY, series.Int, "has_yoy"),
		series.New(imputed, series.Int, "imputed"),
		series.New(clipped, series.Int, "clipped"),
	)
}

// WriteProcessed atomically replaces the processed dataset at path
func WriteProcessed(path string, records []models.ProcessedRecord) error {
	df := ProcessedDataFrame(records)
	if df.Err != nil {
		return fmt.Errorf("failed to build processed dataframe: %w", df.Err)
	}
	return WriteFileAtomic(path, func(w io.Writer) error {
		return df.WriteCSV(w)
	})
}

// ReadProcessed loads the processed dataset. A header-only file yields
// models.ErrEmptyDataset.
func ReadProcessed(path string) ([]models.ProcessedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.NotFoundError{Resource: "processed dataset", ID: path}
		}
		return nil, fmt.Errorf("failed to read processed dataset: %w", err)
	}
	if bytes.Count(bytes.TrimSpace(data), []byte("\n")) == 0 {
		return nil, fmt.Errorf("%s: %w", path, models.ErrEmptyDataset)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(processedTypes),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse processed dataset: %w", df.Err)
	}
	return processedFromDataFrame(df)
}

func processedFromDataFrame(df dataframe.DataFrame) ([]models.ProcessedRecord, error) {
	for _, col := range models.ProcessedColumns {
		if !hasColumn(df, col) {
			return nil, &models.SchemaMismatchError{
				Missing: []string{col},
				Reason:  "processed dataset is missing a column",
			}
		}
	}

	ints := map[string][]int{}
	for _, name := range []string{"year", "month", "quarter", "holiday_count", "has_yoy", "imputed", "clipped"} {
		vals, err := df.Col(name).Int()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		ints[name] = vals
	}
	floats := map[string][]float64{}
	for _, name := range []string{"arrivals", "month_sin", "month_cos", "lag_1", "lag_12", "rolling_avg_3m", "rolling_std_3m", "mom_growth", "yoy_growth"} {
		floats[name] = df.Col(name).Float()
	}
	strs := map[string][]string{}
	for _, name := range []string{"country", "source", "region", "season"} {
		strs[name] = df.Col(name).Records()
	}

	n := df.Nrow()
	out := make([]models.ProcessedRecord, n)
	for i := 0; i < n; i++ {
		r := models.ProcessedRecord{
			Year:         ints["year"][i],
			Month:        ints["month"][i],
			Country:      strs["country"][i],
			Arrivals:     floats["arrivals"][i],
			Source:       strs["source"][i],
			Region:       strs["region"][i],
			Season:       strs["season"][i],
			Quarter:      ints["quarter"][i],
			MonthSin:     floats["month_sin"][i],
			MonthCos:     floats["month_cos"][i],
			HolidayCount: ints["holiday_count"][i],
			Lag1:         floats["lag_1"][i],
			Lag12:        floats["lag_12"][i],
			RollingAvg3m: floats["rolling_avg_3m"][i],
			RollingStd3m: floats["rolling_std_3m"][i],
			MoMGrowth:    floats["mom_growth"][i],
			HasYoY:       ints["has_yoy"][i] == 1,
			Imputed:      ints["imputed"][i] == 1,
			Clipped:      ints["clipped"][i] == 1,
		}
		if math.IsNaN(r.Arrivals) {
			return nil, &models.ValidationError{
				Field:   "arrivals",
				Value:   "NaN",
				Message: fmt.Sprintf("processed row %d has no arrivals value", i+1),
			}
		}
		if yoy := floats["yoy_growth"][i]; !math.IsNaN(yoy) {
			v := yoy
			r.YoYGrowth = &v
		}
		out[i] = r
	}
	return out, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
