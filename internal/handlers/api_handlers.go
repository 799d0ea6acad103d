package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"tourism-forecast/internal/models"
	"tourism-forecast/internal/services"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// APIHandler serves the read-only analytics and forecast API
type APIHandler struct {
	snapshots *services.SnapshotStore
	analytics *services.AnalyticsService
	forecasts *services.ForecastService
	runs      *services.TrainingRunService
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewAPIHandler creates a new API handler. runs may be nil when the
// database mirror is disabled.
func NewAPIHandler(
	snapshots *services.SnapshotStore,
	analytics *services.AnalyticsService,
	forecasts *services.ForecastService,
	runs *services.TrainingRunService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *APIHandler {
	return &APIHandler{
		snapshots: snapshots,
		analytics: analytics,
		forecasts: forecasts,
		runs:      runs,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse reports server and data readiness
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   string    `json:"timestamp"`
	Records     int       `json:"records"`
	HasModel    bool      `json:"has_model"`
	SnapshotAt  time.Time `json:"snapshot_at"`
	Database    string    `json:"database,omitempty"`
	DatabaseErr string    `json:"database_error,omitempty"`

	Mirror *services.MirrorStatus `json:"mirror,omitempty"`
}

// endpointFunc produces the response body of one endpoint
type endpointFunc func(r *http.Request) (interface{}, error)

// serve wraps fn with timing, metrics and error mapping
func (h *APIHandler) serve(endpoint string, fn endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		defer func() {
			h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
		}()

		data, err := fn(r)
		if err != nil {
			h.handleError(w, r, endpoint, err)
			return
		}
		h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
		writeJSON(w, data, http.StatusOK)
	}
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) (int, string) {
	var (
		validation *models.ValidationError
		notFound   *models.NotFoundError
		mismatch   *models.SchemaMismatchError
		short      *models.InsufficientDataError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity, "schema_mismatch"
	case errors.As(err, &short):
		return http.StatusUnprocessableEntity, "insufficient_data"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *APIHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status, errType := statusFor(err)
	h.metrics.RecordAPIError(errType, endpoint)
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(status))

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
			"stage":    "HTTP",
		}, err)
		message = "internal server error"
	}

	writeJSON(w, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}, status)
}

// writeJSON sends a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// optionalInt parses an optional integer query parameter
func optionalInt(r *http.Request, name string) (*int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, &models.ValidationError{Field: name, Value: s, Message: "must be an integer"}
	}
	return &v, nil
}

// intOr parses an integer query parameter with a default
func intOr(r *http.Request, name string, def int) (int, error) {
	v, err := optionalInt(r, name)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}

// Health handles GET /health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Current()
	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Records:    len(snap.Records),
		HasModel:   snap.Artifact != nil,
		SnapshotAt: snap.LoadedAt,
	}
	status := http.StatusOK
	if h.runs != nil {
		resp.Database = "up"
		if err := h.runs.HealthCheck(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			resp.DatabaseErr = err.Error()
			status = http.StatusServiceUnavailable
		} else if mirror, err := h.runs.Status(r.Context()); err != nil {
			resp.DatabaseErr = err.Error()
		} else {
			resp.Mirror = mirror
		}
	}

	h.logger.Debug(r.Context(), "[HEALTH_CHECK] Health check requested", logging.Fields{
		"status": resp.Status,
		"stage":  "HTTP",
	})
	h.metrics.RecordAPIRequest("/health", r.Method, strconv.Itoa(status))
	writeJSON(w, resp, status)
}

func (h *APIHandler) overview(r *http.Request) (interface{}, error) {
	return h.analytics.Overview()
}

func (h *APIHandler) monthlyTrends(r *http.Request) (interface{}, error) {
	year, err := optionalInt(r, "year")
	if err != nil {
		return nil, err
	}
	return h.analytics.MonthlyTrends(year)
}

func (h *APIHandler) countryAnalysis(r *http.Request) (interface{}, error) {
	country := r.URL.Query().Get("country")
	if country == "" {
		return h.analytics.CountrySummaries()
	}
	return h.analytics.CountryTrend(country)
}

func (h *APIHandler) seasonalAnalysis(r *http.Request) (interface{}, error) {
	return h.analytics.SeasonalPatterns()
}

func (h *APIHandler) topCountries(r *http.Request) (interface{}, error) {
	limit, err := intOr(r, "limit", 10)
	if err != nil {
		return nil, err
	}
	year, err := optionalInt(r, "year")
	if err != nil {
		return nil, err
	}
	return h.analytics.TopCountries(limit, year)
}

func (h *APIHandler) yearComparison(r *http.Request) (interface{}, error) {
	return h.analytics.YearComparison()
}

func (h *APIHandler) regionalAnalysis(r *http.Request) (interface{}, error) {
	return h.analytics.RegionalTotals()
}

func (h *APIHandler) growthRates(r *http.Request) (interface{}, error) {
	return h.analytics.GrowthRates()
}

func (h *APIHandler) availableYears(r *http.Request) (interface{}, error) {
	return h.analytics.AvailableYears()
}

func (h *APIHandler) availableCountries(r *http.Request) (interface{}, error) {
	return h.analytics.AvailableCountries()
}

func (h *APIHandler) forecast(r *http.Request) (interface{}, error) {
	horizon, err := intOr(r, "horizon", h.forecasts.DefaultHorizon())
	if err != nil {
		return nil, err
	}
	return h.forecasts.Forecast(r.Context(), horizon)
}

func (h *APIHandler) model(r *http.Request) (interface{}, error) {
	return h.forecasts.ModelInfo()
}

func (h *APIHandler) trainingRuns(r *http.Request) (interface{}, error) {
	limit, err := intOr(r, "limit", 20)
	if err != nil {
		return nil, err
	}
	offset, err := intOr(r, "offset", 0)
	if err != nil {
		return nil, err
	}
	runs, err := h.runs.List(r.Context(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	if runs == nil {
		runs = []*models.TrainingRun{}
	}
	return runs, nil
}

// RegisterRoutes registers all API routes
func (h *APIHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	for path, fn := range map[string]endpointFunc{
		"/overview":            h.overview,
		"/monthly-trends":      h.monthlyTrends,
		"/country-analysis":    h.countryAnalysis,
		"/seasonal-analysis":   h.seasonalAnalysis,
		"/top-countries":       h.topCountries,
		"/year-comparison":     h.yearComparison,
		"/regional-analysis":   h.regionalAnalysis,
		"/growth-rates":        h.growthRates,
		"/available-years":     h.availableYears,
		"/available-countries": h.availableCountries,
		"/forecast":            h.forecast,
		"/model":               h.model,
	} {
		api.HandleFunc(path, h.serve("/api"+path, fn)).Methods(http.MethodGet)
	}
	if h.runs != nil {
		api.HandleFunc("/training-runs", h.serve("/api/training-runs", h.trainingRuns)).Methods(http.MethodGet)
	}

	api.HandleFunc("/docs/openapi.json", OpenAPISpec).Methods(http.MethodGet)
	api.HandleFunc("/docs", SwaggerUI).Methods(http.MethodGet)
}
