package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/retrowetter/retrowetter/internal/analysis"
	"github.com/retrowetter/retrowetter/internal/constants"
	"github.com/retrowetter/retrowetter/internal/dwd"
	"github.com/retrowetter/retrowetter/internal/log"
	"github.com/retrowetter/retrowetter/internal/types"
	"github.com/retrowetter/retrowetter/pkg/responseformat"
)

const queryDateLayout = "2006-01-02"

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetHealth reports liveness and the running version.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, healthResponse{Status: "ok", Version: constants.Version})
}

// GetStations returns the full station index for UI selection.
func (h *Handlers) GetStations(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, h.controller.index.List())
}

// GetStation returns one station by code.
func (h *Handlers) GetStation(w http.ResponseWriter, req *http.Request) {
	station, err := h.controller.index.Find(mux.Vars(req)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.write(w, req, station)
}

// GetSeries returns the cached time series, filtered to the requested range.
func (h *Handlers) GetSeries(w http.ResponseWriter, req *http.Request) {
	series, _, ok := h.fetchSeries(w, req)
	if !ok {
		return
	}
	h.write(w, req, series)
}

// GetHeatDays returns per-year heat day, desert day, and tropical night
// counts plus a trend line over the heat day counts.
func (h *Handlers) GetHeatDays(w http.ResponseWriter, req *http.Request) {
	series, _, ok := h.fetchSeries(w, req)
	if !ok {
		return
	}

	counts := analysis.HeatDays(series)
	points := make([]analysis.YearValue, len(counts))
	for i, c := range counts {
		points[i] = analysis.YearValue{Year: c.Year, Value: float64(c.HeatDays)}
	}

	resp := heatDaysResponse{Years: counts}
	if line, ok := analysis.Trend(points); ok {
		resp.Trend = &line
	}
	h.write(w, req, resp)
}

// GetSummerDays returns the per-year count of days reaching 25 °C.
func (h *Handlers) GetSummerDays(w http.ResponseWriter, req *http.Request) {
	h.yearValues(w, req, analysis.SummerDays)
}

// GetYearlyMedian returns the median daily mean temperature per year.
func (h *Handlers) GetYearlyMedian(w http.ResponseWriter, req *http.Request) {
	h.yearValues(w, req, analysis.YearlyMedian)
}

// GetMonthlyRainfall returns one month's precipitation total across years.
func (h *Handlers) GetMonthlyRainfall(w http.ResponseWriter, req *http.Request) {
	month, err := monthParam(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, _, ok := h.fetchSeries(w, req)
	if !ok {
		return
	}
	h.writeYearValues(w, req, analysis.MonthlyRainfall(series, month))
}

// GetDayOverYears returns one calendar day's temperatures across all years.
func (h *Handlers) GetDayOverYears(w http.ResponseWriter, req *http.Request) {
	month, err := monthParam(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	day, err := strconv.Atoi(req.URL.Query().Get("day"))
	if err != nil || day < 1 || day > 31 {
		http.Error(w, "day parameter must be 1-31", http.StatusBadRequest)
		return
	}

	series, _, ok := h.fetchSeries(w, req)
	if !ok {
		return
	}
	h.write(w, req, analysis.DayOverYears(series, month, day))
}

// GetSunshineFraction returns the per-year mean ratio of measured sunshine
// to the astronomical day length at the station's latitude.
func (h *Handlers) GetSunshineFraction(w http.ResponseWriter, req *http.Request) {
	series, station, ok := h.fetchSeries(w, req)
	if !ok {
		return
	}
	h.writeYearValues(w, req, analysis.SunshineFraction(series, station.Latitude))
}

// InvalidateCache drops the cached series for a station from both cache
// layers. The next series request downloads afresh.
func (h *Handlers) InvalidateCache(w http.ResponseWriter, req *http.Request) {
	station, err := h.controller.index.Find(mux.Vars(req)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.controller.source.Invalidate(station.ID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fetchSeries resolves the station and the requested date range, then pulls
// the filtered series through the cache. On failure it writes the response
// and reports ok=false.
func (h *Handlers) fetchSeries(w http.ResponseWriter, req *http.Request) (types.TimeSeries, types.Station, bool) {
	station, err := h.controller.index.Find(mux.Vars(req)["id"])
	if err != nil {
		h.writeError(w, err)
		return types.TimeSeries{}, types.Station{}, false
	}

	dateRange, err := parseDateRange(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return types.TimeSeries{}, types.Station{}, false
	}

	series, err := h.controller.source.FetchCached(req.Context(), station.ID, dateRange)
	if err != nil {
		h.writeError(w, err)
		return types.TimeSeries{}, types.Station{}, false
	}
	return series, station, true
}

func (h *Handlers) yearValues(w http.ResponseWriter, req *http.Request, aggregate func(types.TimeSeries) []analysis.YearValue) {
	series, _, ok := h.fetchSeries(w, req)
	if !ok {
		return
	}
	h.writeYearValues(w, req, aggregate(series))
}

func (h *Handlers) writeYearValues(w http.ResponseWriter, req *http.Request, values []analysis.YearValue) {
	resp := yearValuesResponse{Years: values}
	if line, ok := analysis.Trend(values); ok {
		resp.Trend = &line
	}
	h.write(w, req, resp)
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		log.Errorf("error encoding response: %v", err)
	}
}

// writeError maps the retrieval error taxonomy to HTTP status codes.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dwd.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dwd.ErrNetwork), errors.Is(err, dwd.ErrFormat):
		log.Errorf("upstream failure: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		log.Errorf("internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parseDateRange reads the optional start/end query parameters, both
// inclusive bounds.
func parseDateRange(req *http.Request) (types.DateRange, error) {
	var dateRange types.DateRange

	if start := req.URL.Query().Get("start"); start != "" {
		t, err := time.Parse(queryDateLayout, start)
		if err != nil {
			return types.DateRange{}, fmt.Errorf("invalid start date %q, want YYYY-MM-DD", start)
		}
		dateRange.Start = t
	}
	if end := req.URL.Query().Get("end"); end != "" {
		t, err := time.Parse(queryDateLayout, end)
		if err != nil {
			return types.DateRange{}, fmt.Errorf("invalid end date %q, want YYYY-MM-DD", end)
		}
		dateRange.End = t
	}
	if !dateRange.Start.IsZero() && !dateRange.End.IsZero() && dateRange.End.Before(dateRange.Start) {
		return types.DateRange{}, fmt.Errorf("end date precedes start date")
	}

	return dateRange, nil
}

func monthParam(req *http.Request) (time.Month, error) {
	m, err := strconv.Atoi(req.URL.Query().Get("month"))
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("month parameter must be 1-12")
	}
	return time.Month(m), nil
}
