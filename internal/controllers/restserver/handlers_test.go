package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/retrowetter/retrowetter/internal/dwd"
	"github.com/retrowetter/retrowetter/internal/types"
)

const stationsFixture = `Stations_id;von_datum;bis_datum;Stationshoehe;geoBreite;geoLaenge;Stationsname;Bundesland
78;18900101;20231231;11;53.0451;8.7981;Bremen;Bremen
1975;19360101;20231231;14;53.6332;9.9881;Hamburg-Fuhlsbuettel;Hamburg
`

// fakeSource is a canned SeriesSource that records the last request.
type fakeSource struct {
	series        types.TimeSeries
	err           error
	invalidateErr error

	lastID      string
	lastRange   types.DateRange
	invalidated []string
}

func (f *fakeSource) FetchCached(_ context.Context, stationID string, dateRange types.DateRange) (types.TimeSeries, error) {
	f.lastID = stationID
	f.lastRange = dateRange
	if f.err != nil {
		return types.TimeSeries{}, f.err
	}
	return f.series.Filter(dateRange), nil
}

func (f *fakeSource) Invalidate(stationID string) error {
	f.invalidated = append(f.invalidated, stationID)
	return f.invalidateErr
}

func newTestRouter(t *testing.T, source SeriesSource) http.Handler {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stations.txt")
	if err := os.WriteFile(path, []byte(stationsFixture), 0o644); err != nil {
		t.Fatalf("writing stations fixture: %v", err)
	}
	index, err := dwd.LoadStations(path)
	if err != nil {
		t.Fatalf("loading stations fixture: %v", err)
	}

	ctrl := &Controller{
		index:  index,
		source: source,
		logger: zap.NewNop().Sugar(),
	}
	ctrl.handlers = NewHandlers(ctrl)
	return ctrl.setupRouter()
}

func day(date string, tempMax, tempMin float64) types.Observation {
	d, _ := time.Parse("2006-01-02", date)
	return types.Observation{
		Date:    d,
		TempMax: types.Float(tempMax),
		TempMin: types.Float(tempMin),
	}
}

func testSeries() types.TimeSeries {
	return types.TimeSeries{
		StationID: "00078",
		Observations: []types.Observation{
			day("2022-07-01", 31.2, 21.0),
			day("2022-07-02", 24.8, 14.1),
			day("2023-07-01", 36.0, 22.3),
			day("2023-07-02", 29.5, 18.0),
		},
	}
}

func doRequest(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetStations(t *testing.T) {
	router := newTestRouter(t, &fakeSource{})

	rec := doRequest(t, router, http.MethodGet, "/api/stations")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var stations []types.Station
	if err := json.NewDecoder(rec.Body).Decode(&stations); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("got %d stations, want 2", len(stations))
	}
	if stations[0].ID != "00078" || stations[1].ID != "01975" {
		t.Errorf("unexpected station order: %s, %s", stations[0].ID, stations[1].ID)
	}
}

func TestGetStation(t *testing.T) {
	router := newTestRouter(t, &fakeSource{})

	// Unpadded codes resolve to the same station.
	rec := doRequest(t, router, http.MethodGet, "/api/stations/78")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var station types.Station
	if err := json.NewDecoder(rec.Body).Decode(&station); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if station.Name != "Bremen" {
		t.Errorf("got station %q, want Bremen", station.Name)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/stations/99999")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown station: got status %d, want 404", rec.Code)
	}
}

func TestGetSeriesPassesRange(t *testing.T) {
	source := &fakeSource{series: testSeries()}
	router := newTestRouter(t, source)

	rec := doRequest(t, router, http.MethodGet, "/api/stations/00078/series?start=2023-01-01&end=2023-12-31")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if source.lastID != "00078" {
		t.Errorf("fetched station %q, want 00078", source.lastID)
	}
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if !source.lastRange.Start.Equal(want) {
		t.Errorf("got range start %v, want %v", source.lastRange.Start, want)
	}

	var series types.TimeSeries
	if err := json.NewDecoder(rec.Body).Decode(&series); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(series.Observations) != 2 {
		t.Errorf("got %d observations, want 2", len(series.Observations))
	}
}

func TestGetSeriesBadParams(t *testing.T) {
	router := newTestRouter(t, &fakeSource{series: testSeries()})

	tests := []struct {
		name   string
		target string
	}{
		{"malformed start", "/api/stations/00078/series?start=01.07.2023"},
		{"malformed end", "/api/stations/00078/series?end=notadate"},
		{"end before start", "/api/stations/00078/series?start=2023-07-01&end=2022-07-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want 400", rec.Code)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", dwd.ErrNotFound, http.StatusNotFound},
		{"network failure", dwd.ErrNetwork, http.StatusBadGateway},
		{"malformed archive", dwd.ErrFormat, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeSource{err: tt.err})
			rec := doRequest(t, router, http.MethodGet, "/api/stations/00078/series")
			if rec.Code != tt.want {
				t.Errorf("got status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGetHeatDays(t *testing.T) {
	router := newTestRouter(t, &fakeSource{series: testSeries()})

	rec := doRequest(t, router, http.MethodGet, "/api/stations/00078/heatdays")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp heatDaysResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Years) != 2 {
		t.Fatalf("got %d years, want 2", len(resp.Years))
	}
	if resp.Years[0].Year != 2022 || resp.Years[0].HeatDays != 1 || resp.Years[0].TropicalNights != 1 {
		t.Errorf("unexpected 2022 counts: %+v", resp.Years[0])
	}
	if resp.Years[1].DesertDays != 1 {
		t.Errorf("got %d desert days for 2023, want 1", resp.Years[1].DesertDays)
	}
	if resp.Trend == nil {
		t.Error("expected a trend line over two years of data")
	}
}

func TestGetMonthlyRainfallValidatesMonth(t *testing.T) {
	router := newTestRouter(t, &fakeSource{series: testSeries()})

	for _, target := range []string{
		"/api/stations/00078/rainfall",
		"/api/stations/00078/rainfall?month=13",
		"/api/stations/00078/rainfall?month=abc",
	} {
		rec := doRequest(t, router, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", target, rec.Code)
		}
	}
}

func TestGetDayOverYears(t *testing.T) {
	router := newTestRouter(t, &fakeSource{series: testSeries()})

	rec := doRequest(t, router, http.MethodGet, "/api/stations/00078/day?month=7&day=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/api/stations/00078/day?month=7&day=32")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad day parameter: got status %d, want 400", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/api/stations/00078/day?day=1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing month parameter: got status %d, want 400", rec.Code)
	}
}

func TestInvalidateCache(t *testing.T) {
	source := &fakeSource{}
	router := newTestRouter(t, source)

	rec := doRequest(t, router, http.MethodDelete, "/api/stations/78/cache")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", rec.Code)
	}
	if len(source.invalidated) != 1 || source.invalidated[0] != "00078" {
		t.Errorf("invalidated %v, want [00078]", source.invalidated)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/stations/99999/cache")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown station: got status %d, want 404", rec.Code)
	}
	if len(source.invalidated) != 1 {
		t.Errorf("unknown station must not reach the source, got %v", source.invalidated)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeSource{})

	rec := doRequest(t, router, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("got status %q, want ok", resp["status"])
	}
}

func TestMsgpackFormat(t *testing.T) {
	router := newTestRouter(t, &fakeSource{})

	rec := doRequest(t, router, http.MethodGet, "/api/stations?format=msgpack")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("got Content-Type %q, want application/x-msgpack", ct)
	}
}
