package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Pipeline Metrics
	StageDuration        *prometheus.HistogramVec
	StageFailuresTotal   *prometheus.CounterVec
	RecordsCollected     *prometheus.CounterVec
	SourceErrorsTotal    *prometheus.CounterVec
	RowsDroppedTotal     *prometheus.CounterVec
	RowsImputedTotal     prometheus.Counter
	RowsClippedTotal     prometheus.Counter
	ProcessedRecords     prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec
	ModelHoldoutMAPE     *prometheus.GaugeVec
	ModelTrainingRows    prometheus.Gauge
	ForecastsTotal       *prometheus.CounterVec
	SnapshotReloadsTotal *prometheus.CounterVec

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

var (
	registryMu sync.Mutex
	collectors = map[string]*Collector{}
)

// NewCollector creates a new metrics collector. Collectors are cached per
// namespace so repeated construction (tests, in-process pipeline runs) does
// not panic on duplicate registration.
func NewCollector(namespace string) *Collector {
	registryMu.Lock()
	defer registryMu.Unlock()

	if c, ok := collectors[namespace]; ok {
		return c
	}
	c := newCollector(namespace)
	collectors[namespace] = c
	return c
}

func newCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),

		StageFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_failures_total",
				Help:      "Total number of fatal pipeline stage failures",
			},
			[]string{"stage"},
		),

		RecordsCollected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_records_total",
				Help:      "Raw arrival records appended by source",
			},
			[]string{"source"},
		),

		SourceErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_source_errors_total",
				Help:      "Collection source failures by source",
			},
			[]string{"source"},
		),

		RowsDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preprocess_rows_dropped_total",
				Help:      "Raw rows dropped during preprocessing by reason",
			},
			[]string{"reason"},
		),

		RowsImputedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preprocess_rows_imputed_total",
				Help:      "Rows whose arrivals value was imputed",
			},
		),

		RowsClippedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preprocess_rows_clipped_total",
				Help:      "Rows whose arrivals value was clipped as an outlier",
			},
		),

		ProcessedRecords: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "processed_records",
				Help:      "Number of records in the latest processed dataset",
			},
		),

		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),

		ModelHoldoutMAPE: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_holdout_mape",
				Help:      "Holdout mean absolute percentage error by model kind",
			},
			[]string{"kind"},
		),

		ModelTrainingRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_training_rows",
				Help:      "Number of rows used to fit the selected model",
			},
		),

		ForecastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Forecast requests by outcome",
			},
			[]string{"outcome"},
		),

		SnapshotReloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_reloads_total",
				Help:      "Dataset/artifact snapshot reloads by outcome",
			},
			[]string{"outcome"},
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// StageTimer starts a timer for a pipeline stage.
func (c *Collector) StageTimer(stage string) *Timer {
	return c.NewTimer(c.StageDuration.WithLabelValues(stage))
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordStageFailure increments the fatal failure counter for a stage
func (c *Collector) RecordStageFailure(stage string) {
	c.StageFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordSourceError increments the collection source error counter
func (c *Collector) RecordSourceError(source string) {
	c.SourceErrorsTotal.WithLabelValues(source).Inc()
}

// RecordDropped adds n to the dropped-row counter for reason
func (c *Collector) RecordDropped(reason string, n int) {
	if n > 0 {
		c.RowsDroppedTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
