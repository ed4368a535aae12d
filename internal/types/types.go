// Package types defines the core data model shared across the application:
// weather stations, daily observations, and per-station time series.
package types

import "time"

// Station is a fixed physical observation site, loaded once from the DWD
// station reference file and immutable thereafter.
type Station struct {
	// ID is the five-digit, zero-padded DWD station code.
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Elevation float64   `json:"elevation_m"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

// Observation holds the measured values for one station and one day. All
// measurement fields are pointers: the DWD "missing value" sentinel maps to
// nil, which is distinct from a measured zero.
type Observation struct {
	Date          time.Time `json:"date"`
	TempMean      *float64  `json:"temp_mean,omitempty"`       // TMK, °C
	TempMin       *float64  `json:"temp_min,omitempty"`        // TNK, °C at 2m
	TempMax       *float64  `json:"temp_max,omitempty"`        // TXK, °C at 2m
	TempGroundMin *float64  `json:"temp_ground_min,omitempty"` // TGK, °C at 5cm
	Precipitation *float64  `json:"precipitation,omitempty"`   // RSK, mm
	PrecipForm    *float64  `json:"precip_form,omitempty"`     // RSKF, coded
	SunshineHours *float64  `json:"sunshine_hours,omitempty"`  // SDK, h
	SnowDepth     *float64  `json:"snow_depth,omitempty"`      // SHK_TAG, cm
	CloudCover    *float64  `json:"cloud_cover,omitempty"`     // NM, eighths
	VaporPressure *float64  `json:"vapor_pressure,omitempty"`  // VPM, hPa
	Pressure      *float64  `json:"pressure,omitempty"`        // PM, hPa
	Humidity      *float64  `json:"humidity,omitempty"`        // UPM, %
	WindSpeed     *float64  `json:"wind_speed,omitempty"`      // FM, m/s
	WindGustMax   *float64  `json:"wind_gust_max,omitempty"`   // FX, m/s
}

// TimeSeries is the ordered per-station sequence of daily observations.
// Dates are unique and strictly increasing.
type TimeSeries struct {
	StationID    string        `json:"station_id"`
	Observations []Observation `json:"observations"`
}

// DateRange is an inclusive date interval. A zero Start or End leaves that
// bound open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the range, bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// IsZero reports whether both bounds are open.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Filter returns a new TimeSeries containing only the observations whose
// dates fall within the range. Ordering is preserved; an empty result is
// valid.
func (ts TimeSeries) Filter(r DateRange) TimeSeries {
	if r.IsZero() {
		out := TimeSeries{StationID: ts.StationID, Observations: make([]Observation, len(ts.Observations))}
		copy(out.Observations, ts.Observations)
		return out
	}
	out := TimeSeries{StationID: ts.StationID}
	for _, obs := range ts.Observations {
		if r.Contains(obs.Date) {
			out.Observations = append(out.Observations, obs)
		}
	}
	return out
}

// Float returns a pointer to v, for building nullable observation fields.
func Float(v float64) *float64 {
	return &v
}
