package preprocess

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/features"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// Drop reasons
const (
	DropInvalidYear     = "invalid_year"
	DropInvalidMonth    = "invalid_month"
	DropInvalidCountry  = "invalid_country"
	DropInvalidArrivals = "invalid_arrivals"
	DropUnimputable     = "unimputable"
)

// Preprocessor cleans raw arrival rows and derives the processed dataset
type Preprocessor struct {
	cfg      config.PreprocessConfig
	holidays *features.HolidayCalendar
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewPreprocessor creates a new preprocessor
func NewPreprocessor(cfg config.PreprocessConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Preprocessor {
	return &Preprocessor{
		cfg:      cfg,
		holidays: features.NewHolidayCalendar(cfg.Holidays),
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// Run reads the raw store, processes it and atomically replaces the
// processed dataset. On error the previous processed file is untouched.
func (p *Preprocessor) Run(ctx context.Context, raw *storage.RawStore, outPath string) (*models.PreprocessSummary, error) {
	timer := p.metrics.StageTimer("preprocess")
	startTime := time.Now()

	p.logger.Info(ctx, "[PREPROCESS_START] Starting preprocessing", logging.Fields{
		"raw_path":       raw.Path(),
		"processed_path": outPath,
		"stage":          "INITIALIZATION",
	})

	rows, err := raw.ReadRows()
	if err != nil {
		p.metrics.RecordStageFailure("preprocess")
		return nil, fmt.Errorf("failed to read raw dataset: %w", err)
	}

	records, summary, err := p.Process(ctx, rows)
	if err != nil {
		p.metrics.RecordStageFailure("preprocess")
		return nil, err
	}

	if err := storage.WriteProcessed(outPath, records); err != nil {
		p.metrics.RecordStageFailure("preprocess")
		return nil, fmt.Errorf("failed to write processed dataset: %w", err)
	}

	timer.ObserveDuration()
	p.metrics.ProcessedRecords.Set(float64(len(records)))

	p.logger.Info(ctx, "[PREPROCESS_COMPLETE] Preprocessing completed", logging.Fields{
		"raw_rows":         summary.RawRows,
		"processed_rows":   summary.ProcessedRows,
		"dropped":          summary.Dropped,
		"duplicates":       summary.Duplicates,
		"imputed":          summary.Imputed,
		"reindexed":        summary.Reindexed,
		"clipped":          summary.Clipped,
		"countries":        summary.Countries,
		"range_start":      summary.ProcessedRange.Start.String(),
		"range_end":        summary.ProcessedRange.End.String(),
		"duration_seconds": time.Since(startTime).Seconds(),
		"stage":            "COMPLETE",
	})

	return summary, nil
}

// Process applies the fixed cleaning rules in order: parse, dedup,
// reindex to a continuous monthly range per country, impute, clip, derive
// features. The output is sorted by (country, year, month) and
// depends only on the input rows, never on their order.
func (p *Preprocessor) Process(ctx context.Context, rows []models.RawRow) ([]models.ProcessedRecord, *models.PreprocessSummary, error) {
	summary := &models.PreprocessSummary{
		RawRows: len(rows),
		Dropped: map[string]int{},
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("raw dataset has no rows: %w", models.ErrEmptyDataset)
	}

	parsed := p.parse(ctx, rows, summary)
	if len(parsed) == 0 {
		return nil, nil, fmt.Errorf("all %d raw rows are invalid: %w", len(rows), models.ErrEmptyDataset)
	}

	summary.RawRange = periodRange(parsed)

	cleaned := dedup(parsed, summary)
	series := groupByCountry(cleaned)
	for c, cs := range series {
		full := cs.reindex()
		summary.Reindexed += len(full) - len(cs)
		series[c] = full
	}

	countries := make([]string, 0, len(series))
	for c := range series {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	var out []models.ProcessedRecord
	for _, country := range countries {
		cs := series[country]
		dropped := impute(cs, summary)
		p.metrics.RecordDropped(DropUnimputable, dropped)
		cs = cs.present()
		if len(cs) == 0 {
			continue
		}
		summary.Clipped += clip(cs, p.cfg.OutlierStdDevs)
		out = append(out, p.derive(country, cs)...)
	}

	if len(out) == 0 {
		return nil, nil, fmt.Errorf("no rows left after imputation: %w", models.ErrEmptyDataset)
	}

	summary.ProcessedRows = len(out)
	summary.Countries = len(countries)
	summary.ProcessedRange = processedRange(out)

	p.metrics.RowsImputedTotal.Add(float64(summary.Imputed))
	p.metrics.RowsClippedTotal.Add(float64(summary.Clipped))

	if total := summary.TotalDropped(); total > 0 {
		p.logger.Warn(ctx, "[PREPROCESS_DROPPED] Dropped invalid raw rows", logging.Fields{
			"dropped": summary.Dropped,
			"total":   total,
			"stage":   "CLEANING",
		})
	}

	return out, summary, nil
}

func (p *Preprocessor) parse(ctx context.Context, rows []models.RawRow, summary *models.PreprocessSummary) []*models.RawArrivalRecord {
	parsed := make([]*models.RawArrivalRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToRecord()
		if err != nil {
			reason := dropReason(err)
			summary.Dropped[reason]++
			p.metrics.RecordDropped(reason, 1)
			p.logger.Debug(ctx, "[PREPROCESS_ROW_DROPPED] Dropping raw row", logging.Fields{
				"line":   rows[i].Line,
				"reason": reason,
				"error":  err.Error(),
				"stage":  "PARSE",
			})
			continue
		}
		parsed = append(parsed, rec)
	}
	return parsed
}

func dropReason(err error) string {
	ve, ok := err.(*models.ValidationError)
	if !ok {
		return DropInvalidArrivals
	}
	switch ve.Field {
	case models.FieldYear:
		return DropInvalidYear
	case models.FieldMonth:
		return DropInvalidMonth
	case models.FieldCountry:
		return DropInvalidCountry
	default:
		return DropInvalidArrivals
	}
}

// cleanRecord is a deduplicated observation on its way to becoming a
// processed record
type cleanRecord struct {
	period  models.Period
	source  string
	value   float64
	missing bool
	imputed bool
	clipped bool
}

type countrySeries []*cleanRecord

// reindex returns the sorted series with a missing record inserted for
// every month absent between its first and last period. Inserted months
// carry the source of the preceding record and go through imputation like
// any other missing value.
func (cs countrySeries) reindex() countrySeries {
	if len(cs) < 2 {
		return cs
	}
	span := cs[len(cs)-1].period.Sub(cs[0].period) + 1
	if span == len(cs) {
		return cs
	}
	out := make(countrySeries, 0, span)
	for i, r := range cs {
		if i > 0 {
			prev := cs[i-1]
			for p := prev.period.Next(); p.Before(r.period); p = p.Next() {
				out = append(out, &cleanRecord{period: p, source: prev.source, missing: true})
			}
		}
		out = append(out, r)
	}
	return out
}

func (cs countrySeries) present() countrySeries {
	out := cs[:0]
	for _, r := range cs {
		if !r.missing {
			out = append(out, r)
		}
	}
	return out
}

// dedup keeps one record per (year, month, country). Records with a value
// win over missing ones; among those, the lexicographically smallest
// source wins.
func dedup(parsed []*models.RawArrivalRecord, summary *models.PreprocessSummary) []*models.RawArrivalRecord {
	type key struct {
		country string
		period  models.Period
	}
	best := make(map[key]*models.RawArrivalRecord, len(parsed))
	for _, rec := range parsed {
		k := key{rec.Country, rec.Period()}
		cur, ok := best[k]
		if !ok {
			best[k] = rec
			continue
		}
		summary.Duplicates++
		if better(rec, cur) {
			best[k] = rec
		}
	}

	out := make([]*models.RawArrivalRecord, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	return out
}

func better(a, b *models.RawArrivalRecord) bool {
	if (a.Arrivals != nil) != (b.Arrivals != nil) {
		return a.Arrivals != nil
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	// Same key and source only occurs with hand-edited raw files.
	if a.Arrivals != nil && b.Arrivals != nil {
		return *a.Arrivals < *b.Arrivals
	}
	return false
}

func groupByCountry(records []*models.RawArrivalRecord) map[string]countrySeries {
	series := make(map[string]countrySeries)
	for _, rec := range records {
		cr := &cleanRecord{period: rec.Period(), source: rec.Source}
		if rec.Arrivals == nil {
			cr.missing = true
		} else {
			cr.value = *rec.Arrivals
		}
		series[rec.Country] = append(series[rec.Country], cr)
	}
	for _, cs := range series {
		sort.Slice(cs, func(i, j int) bool { return cs[i].period.Before(cs[j].period) })
	}
	return series
}

// impute fills missing values with the median of the same calendar month
// in other years, falling back to the country median. Rows that cannot be
// imputed stay missing and are counted as dropped.
func impute(cs countrySeries, summary *models.PreprocessSummary) int {
	byMonth := make(map[int][]float64)
	var all []float64
	for _, r := range cs {
		if r.missing {
			continue
		}
		byMonth[r.period.Month] = append(byMonth[r.period.Month], r.value)
		all = append(all, r.value)
	}

	dropped := 0
	for _, r := range cs {
		if !r.missing {
			continue
		}
		switch {
		case len(byMonth[r.period.Month]) > 0:
			r.value = median(byMonth[r.period.Month])
		case len(all) > 0:
			r.value = median(all)
		default:
			summary.Dropped[DropUnimputable]++
			dropped++
			continue
		}
		r.missing = false
		r.imputed = true
		summary.Imputed++
	}
	return dropped
}

// clip bounds values to mean ± n standard deviations of the country
func clip(cs countrySeries, n float64) int {
	if len(cs) < 3 || n <= 0 {
		return 0
	}
	values := make([]float64, len(cs))
	for i, r := range cs {
		values[i] = r.value
	}
	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 {
		return 0
	}
	lo, hi := mean-n*std, mean+n*std
	if lo < 0 {
		lo = 0
	}

	clipped := 0
	for _, r := range cs {
		switch {
		case r.value < lo:
			r.value = lo
		case r.value > hi:
			r.value = hi
		default:
			continue
		}
		r.clipped = true
		clipped++
	}
	return clipped
}

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func periodRange(records []*models.RawArrivalRecord) models.PeriodRange {
	r := models.PeriodRange{Start: records[0].Period(), End: records[0].Period()}
	for _, rec := range records[1:] {
		p := rec.Period()
		if p.Before(r.Start) {
			r.Start = p
		}
		if p.After(r.End) {
			r.End = p
		}
	}
	return r
}

func processedRange(records []models.ProcessedRecord) models.PeriodRange {
	r := models.PeriodRange{Start: records[0].Period(), End: records[0].Period()}
	for i := range records[1:] {
		p := records[i+1].Period()
		if p.Before(r.Start) {
			r.Start = p
		}
		if p.After(r.End) {
			r.End = p
		}
	}
	return r
}
