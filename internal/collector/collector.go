package collector

import (
	"context"
	"fmt"
	"time"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// ArrivalMirror receives every raw record newly appended to the raw store
type ArrivalMirror interface {
	InsertArrivals(ctx context.Context, records []models.RawArrivalRecord) (int, error)
}

// Result summarizes one collection run
type Result struct {
	RunID    string         `json:"run_id"`
	BySource map[string]int `json:"by_source"`
	Appended int            `json:"appended"`
	Mirrored int            `json:"mirrored"`
	Fallback bool           `json:"fallback"`
	Failed   []string       `json:"failed_sources,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Collector runs the configured sources and appends their records to the
// raw store
type Collector struct {
	req       Request
	sources   []Source
	synthetic Source
	raw       *storage.RawStore
	mirror    ArrivalMirror
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewCollector wires the external sources from configuration: the HTTP
// source when a URL is configured, then the inbox file source. The
// synthetic generator is only used as fallback.
func NewCollector(cfg *config.Config, raw *storage.RawStore, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Collector {
	var sources []Source
	if cfg.Collector.SourceURL != "" {
		sources = append(sources, NewHTTPSource(cfg.Collector.SourceURL, cfg.Collector.HTTPTimeout, cfg.Collector.BreakerFailures, logger, metricsCollector))
	}
	sources = append(sources, NewFileSource(cfg.Paths.InboxDir, logger))

	var synthetic Source
	if cfg.Collector.EnableSynthetic {
		synthetic = NewSyntheticSource(cfg.Collector.SyntheticSeed)
	}

	return &Collector{
		req: Request{
			StartYear: cfg.Collector.StartYear,
			EndYear:   cfg.Collector.EndYear,
			EndMonth:  cfg.Collector.EndMonth,
			Countries: cfg.Collector.Countries,
		},
		sources:   sources,
		synthetic: synthetic,
		raw:       raw,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// WithSources replaces the external sources
func (c *Collector) WithSources(sources ...Source) *Collector {
	c.sources = sources
	return c
}

// WithSynthetic replaces the fallback source; nil disables fallback
func (c *Collector) WithSynthetic(s Source) *Collector {
	c.synthetic = s
	return c
}

// WithMirror sets the optional mirror for appended records
func (c *Collector) WithMirror(m ArrivalMirror) *Collector {
	c.mirror = m
	return c
}

// Collect runs every source in order. Source failures are logged and never
// fatal. If no source yields a record the synthetic generator is used. The
// run only fails when nothing could be collected and the raw store is
// still empty.
func (c *Collector) Collect(ctx context.Context, runID string) (*Result, error) {
	timer := c.metrics.StageTimer("collect")
	startTime := time.Now()
	result := &Result{RunID: runID, BySource: map[string]int{}}

	c.logger.Info(ctx, "[COLLECT_START] Starting collection", logging.Fields{
		"run_id":     runID,
		"start_year": c.req.StartYear,
		"end_year":   c.req.EndYear,
		"countries":  len(c.req.Countries),
		"sources":    len(c.sources),
		"stage":      "INITIALIZATION",
	})

	var collected []models.RawArrivalRecord
	for _, src := range c.sources {
		records, err := src.Fetch(ctx, c.req)
		if ctx.Err() != nil {
			c.metrics.RecordStageFailure("collect")
			return nil, ctx.Err()
		}
		if err != nil {
			c.metrics.RecordSourceError(src.Name())
			result.Failed = append(result.Failed, src.Name())
			c.logger.Warn(ctx, "[COLLECT_SOURCE_ERROR] Source failed, continuing", logging.Fields{
				"source":  src.Name(),
				"partial": len(records),
				"error":   err.Error(),
				"stage":   "FETCH",
			})
		}
		kept := c.inRange(records)
		result.BySource[src.Name()] += len(kept)
		collected = append(collected, kept...)
	}

	if len(collected) == 0 && c.synthetic != nil {
		c.logger.Warn(ctx, "[COLLECT_FALLBACK] No external data, generating synthetic dataset", logging.Fields{
			"failed_sources": result.Failed,
			"stage":          "FALLBACK",
		})
		records, err := c.synthetic.Fetch(ctx, c.req)
		if err != nil {
			c.metrics.RecordStageFailure("collect")
			return nil, fmt.Errorf("synthetic generation failed: %w", err)
		}
		result.Fallback = true
		result.BySource[c.synthetic.Name()] = len(records)
		collected = records
	}

	for name, n := range result.BySource {
		c.metrics.RecordsCollected.WithLabelValues(name).Add(float64(n))
	}

	if len(collected) == 0 {
		keys, err := c.raw.Keys()
		if err != nil || len(keys) == 0 {
			c.metrics.RecordStageFailure("collect")
			return nil, fmt.Errorf("no source produced records and the raw store is empty: %w", models.ErrEmptyDataset)
		}
		c.logger.Warn(ctx, "[COLLECT_EMPTY] No new records, keeping existing raw dataset", logging.Fields{
			"existing": len(keys),
			"stage":    "FETCH",
		})
	}

	appended, err := c.raw.Append(collected)
	if err != nil {
		c.metrics.RecordStageFailure("collect")
		return nil, fmt.Errorf("failed to append raw records: %w", err)
	}
	result.Appended = len(appended)

	if c.mirror != nil && len(appended) > 0 {
		n, err := c.mirror.InsertArrivals(ctx, appended)
		if err != nil {
			c.logger.Warn(ctx, "[COLLECT_MIRROR_ERROR] Failed to mirror raw records", logging.Fields{
				"records": len(appended),
				"error":   err.Error(),
				"stage":   "MIRROR",
			})
		}
		result.Mirrored = n
	}

	timer.ObserveDuration()
	result.Duration = time.Since(startTime)

	c.logger.Info(ctx, "[COLLECT_COMPLETE] Collection completed", logging.Fields{
		"run_id":           runID,
		"by_source":        result.BySource,
		"appended":         result.Appended,
		"mirrored":         result.Mirrored,
		"fallback":         result.Fallback,
		"raw_path":         c.raw.Path(),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (c *Collector) inRange(records []models.RawArrivalRecord) []models.RawArrivalRecord {
	kept := records[:0:0]
	for _, rec := range records {
		if c.req.InRange(rec.Period()) {
			kept = append(kept, rec)
		}
	}
	return kept
}
