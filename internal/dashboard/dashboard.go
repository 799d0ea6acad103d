// Package dashboard renders the single-page HTML view of the current
// snapshot.
package dashboard

import (
	"bytes"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tourism-forecast/internal/models"
	"tourism-forecast/internal/services"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

// Page is the view model of the dashboard
type Page struct {
	GeneratedAt time.Time
	Overview    *services.Overview
	Years       []services.YearSummary
	Growth      map[int]float64
	Top         []services.CountryTotal
	Seasonal    []services.MonthlyPattern
	Model       *services.ModelInfo
	Forecast    *models.ForecastResult
	Notices     []string
}

// Handler serves the dashboard
type Handler struct {
	analytics *services.AnalyticsService
	forecasts *services.ForecastService
	tmpl      *template.Template
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewHandler creates a dashboard handler. Numbers are formatted for tag.
func NewHandler(analytics *services.AnalyticsService, forecasts *services.ForecastService, tag language.Tag, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Handler {
	p := message.NewPrinter(tag)
	funcs := template.FuncMap{
		"num": func(v interface{}) string {
			switch n := v.(type) {
			case int64:
				return p.Sprintf("%d", n)
			case int:
				return p.Sprintf("%d", n)
			case float64:
				return p.Sprintf("%d", int64(math.Round(n)))
			}
			return p.Sprint(v)
		},
		"pct":        func(v float64) string { return p.Sprintf("%.1f%%", v) },
		"mulHundred": func(v float64) float64 { return v * 100 },
	}
	return &Handler{
		analytics: analytics,
		forecasts: forecasts,
		tmpl:      template.Must(template.New("dashboard").Funcs(funcs).Parse(pageTemplate)),
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Build assembles the page. Sections without data are replaced by notices.
func (h *Handler) Build(r *http.Request) *Page {
	page := &Page{GeneratedAt: time.Now().UTC(), Growth: map[int]float64{}}

	overview, err := h.analytics.Overview()
	if err != nil {
		page.Notices = append(page.Notices, "No processed data yet. Run the pipeline to populate the dashboard.")
	} else {
		page.Overview = overview
		page.Years, _ = h.analytics.YearComparison()
		page.Top, _ = h.analytics.TopCountries(10, nil)
		page.Seasonal, _ = h.analytics.SeasonalPatterns()
		growth, _ := h.analytics.GrowthRates()
		for _, g := range growth {
			page.Growth[g.Year] = g.YoYGrowth
		}
	}

	if info, err := h.forecasts.ModelInfo(); err == nil {
		page.Model = info
		res, err := h.forecasts.Forecast(r.Context(), h.forecasts.DefaultHorizon())
		if err != nil {
			page.Notices = append(page.Notices, "Forecast unavailable: "+err.Error())
		} else {
			page.Forecast = res
		}
	} else {
		page.Notices = append(page.Notices, "No trained model yet.")
	}
	return page
}

// ServeHTTP renders the page
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/").Observe(time.Since(start).Seconds())
	}()

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, h.Build(r)); err != nil {
		h.logger.Error(r.Context(), "[DASHBOARD_RENDER_ERROR] Failed to render dashboard", logging.Fields{
			"stage": "HTTP",
		}, err)
		h.metrics.RecordAPIError("render_error", "/")
		h.metrics.RecordAPIRequest("/", r.Method, "500")
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	h.metrics.RecordAPIRequest("/", r.Method, "200")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// RegisterRoutes registers the dashboard page
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Handle("/", h).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
}
