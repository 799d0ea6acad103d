package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
	"tourism-forecast/pkg/metrics"
)

var testMetrics = metrics.NewCollector("test_collector")

func testRequest() Request {
	return Request{StartYear: 2022, EndYear: 2023, EndMonth: 12, Countries: []string{"India", "Japan"}}
}

func TestParseTable(t *testing.T) {
	table := [][]string{
		{"Year", "Month", "Country of Origin", "Arrival Count"},
		{"2022", "January", "India", "1,200"},
		{"", "", "", ""},
		{"2022", "13", "India", "5"},
		{"2022", "2", "Japan", "NA"},
	}
	res, err := ParseTable(table, "file:a.csv")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 1200.0, *res.Records[0].Arrivals)
	assert.Equal(t, "file:a.csv", res.Records[0].Source)
	assert.Nil(t, res.Records[1].Arrivals)

	_, err = ParseTable([][]string{{"year", "month"}}, "x")
	assert.True(t, models.IsValidation(err))
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		year := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/arrivals-"), ".csv")
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprintf(w, "year,month,country,arrivals\n%s,1,India,100\n%s,2,India,110\n", year, year)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/arrivals-{year}.csv", time.Second, 3, logging.Nop(), testMetrics)
	records, err := src.Fetch(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, 2023, records[2].Year)
	assert.Equal(t, models.SourceHTTP, records[0].Source)
}

func TestHTTPSource_BreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/{year}", time.Second, 2, logging.Nop(), testMetrics)
	req := Request{StartYear: 2019, EndYear: 2024, EndMonth: 12, Countries: []string{"India"}}
	records, err := src.Fetch(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, records)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, gobreaker.StateOpen, src.State())
}

func TestFileSource_CSVAndXLSX(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"),
		[]byte("year,month,country,arrivals\n2022,3,India,300\n2030,1,India,1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	xf := excelize.NewFile()
	sheet := xf.GetSheetName(0)
	require.NoError(t, xf.SetSheetRow(sheet, "A1", &[]interface{}{"Year", "Month", "Country", "Arrivals"}))
	require.NoError(t, xf.SetSheetRow(sheet, "A2", &[]interface{}{2023, "Feb", "Japan", 420}))
	require.NoError(t, xf.SaveAs(filepath.Join(dir, "b.xlsx")))
	require.NoError(t, xf.Close())

	src := NewFileSource(dir, logging.Nop())
	records, err := src.Fetch(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "file:a.csv", records[0].Source)
	assert.Equal(t, 300.0, *records[0].Arrivals)
	assert.Equal(t, "file:b.xlsx", records[1].Source)
	assert.Equal(t, 2, records[1].Month)
	assert.Equal(t, 420.0, *records[1].Arrivals)
}

func TestFileSource_MissingDir(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope"), logging.Nop())
	records, err := src.Fetch(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSyntheticSource_Deterministic(t *testing.T) {
	req := Request{StartYear: 2019, EndYear: 2024, EndMonth: 12, Countries: []string{"India", "China", "Japan"}}
	a, err := NewSyntheticSource(42).Fetch(context.Background(), req)
	require.NoError(t, err)
	b, err := NewSyntheticSource(42).Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, a, 6*12*3)
	assert.Equal(t, a, b)

	c, err := NewSyntheticSource(7).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	for _, r := range a {
		require.NotNil(t, r.Arrivals)
		assert.GreaterOrEqual(t, *r.Arrivals, 0.0)
	}

	// April 2020 falls in the collapse, January 2019 is high season
	byKey := map[string]float64{}
	for _, r := range a {
		byKey[fmt.Sprintf("%s-%s", r.Period(), r.Country)] = *r.Arrivals
	}
	assert.Less(t, byKey["2020-04-India"], 1500.0)
	assert.Greater(t, byKey["2019-01-India"], 15000.0)
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Fetch(context.Context, Request) ([]models.RawArrivalRecord, error) {
	return nil, errors.New("connection refused")
}

type staticSource struct {
	name    string
	records []models.RawArrivalRecord
}

func (s staticSource) Name() string { return s.name }
func (s staticSource) Fetch(context.Context, Request) ([]models.RawArrivalRecord, error) {
	return s.records, nil
}

type recordingMirror struct{ got []models.RawArrivalRecord }

func (m *recordingMirror) InsertArrivals(_ context.Context, records []models.RawArrivalRecord) (int, error) {
	m.got = append(m.got, records...)
	return len(records), nil
}

func newTestCollector(t *testing.T) (*Collector, *storage.RawStore) {
	cfg := config.DefaultConfig()
	cfg.Collector.StartYear = 2022
	cfg.Collector.EndYear = 2023
	cfg.Collector.EndMonth = 12
	cfg.Collector.Countries = []string{"India", "Japan"}
	cfg.Collector.SourceURL = ""
	cfg.Paths.InboxDir = filepath.Join(t.TempDir(), "inbox")
	raw := storage.NewRawStore(filepath.Join(t.TempDir(), "raw", "arrivals.csv"))
	return NewCollector(cfg, raw, logging.Nop(), testMetrics), raw
}

func TestCollect_FallsBackToSynthetic(t *testing.T) {
	c, raw := newTestCollector(t)
	mirror := &recordingMirror{}
	c.WithSources(failingSource{}).WithMirror(mirror)

	res, err := c.Collect(context.Background(), "run-1")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, []string{"broken"}, res.Failed)
	assert.Equal(t, 48, res.BySource[models.SourceSynthetic])
	assert.Equal(t, 48, res.Appended)
	assert.Len(t, mirror.got, 48)

	rows, err := raw.ReadRows()
	require.NoError(t, err)
	assert.Len(t, rows, 48)

	// re-collecting the same keys appends nothing
	res, err = c.Collect(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Appended)
	rows, err = raw.ReadRows()
	require.NoError(t, err)
	assert.Len(t, rows, 48)
}

func TestCollect_ExternalDataSkipsFallback(t *testing.T) {
	c, _ := newTestCollector(t)
	v := 10.0
	c.WithSources(staticSource{name: "http", records: []models.RawArrivalRecord{
		{Year: 2022, Month: 1, Country: "India", Arrivals: &v, Source: "http"},
		{Year: 2018, Month: 1, Country: "India", Arrivals: &v, Source: "http"},
	}})

	res, err := c.Collect(context.Background(), "run")
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, 1, res.BySource["http"])
	assert.Equal(t, 1, res.Appended)
}

func TestCollect_NothingAvailable(t *testing.T) {
	c, _ := newTestCollector(t)
	c.WithSources(failingSource{}).WithSynthetic(nil)

	_, err := c.Collect(context.Background(), "run")
	assert.ErrorIs(t, err, models.ErrEmptyDataset)
}
