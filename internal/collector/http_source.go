package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"tourism-forecast/internal/models"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

const breakerName = "arrivals-http"

// HTTPSource downloads one CSV file per year from a URL template with a
// {year} placeholder. Calls go through a circuit breaker so a dead
// endpoint is not hammered for every remaining year.
type HTTPSource struct {
	urlTemplate string
	client      *http.Client
	cb          *gobreaker.CircuitBreaker[*TableResult]
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewHTTPSource creates an HTTP source. The breaker opens after
// maxFailures consecutive failed downloads.
func NewHTTPSource(urlTemplate string, timeout time.Duration, maxFailures uint32, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *HTTPSource {
	metricsCollector.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*TableResult](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "[COLLECT_BREAKER] Circuit breaker state transition", logging.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
				"stage":   "HTTP_SOURCE",
			})
			metricsCollector.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &HTTPSource{
		urlTemplate: urlTemplate,
		client:      &http.Client{Timeout: timeout},
		cb:          cb,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// Name implements Source
func (s *HTTPSource) Name() string { return models.SourceHTTP }

// Fetch downloads every requested year. Years that fail are reported in the
// returned error; records of the years that succeeded are still returned.
func (s *HTTPSource) Fetch(ctx context.Context, req Request) ([]models.RawArrivalRecord, error) {
	var (
		records []models.RawArrivalRecord
		errs    []error
	)

	for year := req.StartYear; year <= req.EndYear; year++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		url := strings.ReplaceAll(s.urlTemplate, "{year}", strconv.Itoa(year))
		res, err := s.cb.Execute(func() (*TableResult, error) {
			return s.download(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				errs = append(errs, fmt.Errorf("year %d: %w", year, err))
				continue
			}
			s.logger.Warn(ctx, "[COLLECT_HTTP_ERROR] Download failed", logging.Fields{
				"url":   url,
				"year":  year,
				"error": err.Error(),
				"stage": "HTTP_SOURCE",
			})
			errs = append(errs, fmt.Errorf("year %d: %w", year, err))
			continue
		}

		if res.Invalid > 0 {
			s.logger.Warn(ctx, "[COLLECT_HTTP_INVALID] Skipped unparseable rows", logging.Fields{
				"url":     url,
				"invalid": res.Invalid,
				"stage":   "HTTP_SOURCE",
			})
		}
		records = append(records, res.Records...)
	}

	return records, errors.Join(errs...)
}

func (s *HTTPSource) download(ctx context.Context, url string) (*TableResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	table, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV body: %w", err)
	}
	return ParseTable(table, models.SourceHTTP)
}

// State returns the breaker state, for tests and diagnostics
func (s *HTTPSource) State() gobreaker.State {
	return s.cb.State()
}

func stateToFloat(st gobreaker.State) float64 {
	switch st {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
