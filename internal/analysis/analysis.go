// Package analysis derives per-year climate-trend aggregates from a
// station's daily time series. Missing measurements are excluded from every
// aggregate; they are never treated as zero.
package analysis

import (
	"sort"
	"time"

	"github.com/retrowetter/retrowetter/internal/types"
	"github.com/retrowetter/retrowetter/pkg/solar"
	"gonum.org/v1/gonum/stat"
)

// Temperature thresholds (°C) from the DWD climatological day definitions.
const (
	summerDayMax     = 25.0
	heatDayMax       = 30.0
	desertDayMax     = 35.0
	tropicalNightMin = 20.0
)

// HeatDayCounts is the per-year tally of hot-day categories.
type HeatDayCounts struct {
	Year           int `json:"year"`
	HeatDays       int `json:"heat_days"`       // TXK >= 30 °C
	DesertDays     int `json:"desert_days"`     // TXK >= 35 °C
	TropicalNights int `json:"tropical_nights"` // TNK >= 20 °C
}

// YearValue is one aggregated value for one year.
type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// DayTemperatures holds one calendar day's temperatures in a single year.
type DayTemperatures struct {
	Year     int      `json:"year"`
	TempMin  *float64 `json:"temp_min,omitempty"`
	TempMean *float64 `json:"temp_mean,omitempty"`
	TempMax  *float64 `json:"temp_max,omitempty"`
}

// TrendLine is a least-squares fit over (year, value) points, for chart
// overlays.
type TrendLine struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

// HeatDays counts heat days, desert days, and tropical nights per year.
func HeatDays(ts types.TimeSeries) []HeatDayCounts {
	byYear := make(map[int]*HeatDayCounts)
	for _, obs := range ts.Observations {
		year := obs.Date.Year()
		counts, ok := byYear[year]
		if !ok {
			counts = &HeatDayCounts{Year: year}
			byYear[year] = counts
		}
		if obs.TempMax != nil && *obs.TempMax >= heatDayMax {
			counts.HeatDays++
		}
		if obs.TempMax != nil && *obs.TempMax >= desertDayMax {
			counts.DesertDays++
		}
		if obs.TempMin != nil && *obs.TempMin >= tropicalNightMin {
			counts.TropicalNights++
		}
	}
	return sortedCounts(byYear)
}

// SummerDays counts the days with a maximum temperature of at least 25 °C
// per year.
func SummerDays(ts types.TimeSeries) []YearValue {
	byYear := make(map[int]float64)
	for _, obs := range ts.Observations {
		if obs.TempMax != nil && *obs.TempMax >= summerDayMax {
			byYear[obs.Date.Year()]++
		}
	}
	return sortedValues(byYear)
}

// YearlyMedian computes the median daily mean temperature per year. Years
// without a single measured value are omitted.
func YearlyMedian(ts types.TimeSeries) []YearValue {
	byYear := make(map[int][]float64)
	for _, obs := range ts.Observations {
		if obs.TempMean != nil {
			year := obs.Date.Year()
			byYear[year] = append(byYear[year], *obs.TempMean)
		}
	}

	medians := make(map[int]float64, len(byYear))
	for year, values := range byYear {
		sort.Float64s(values)
		medians[year] = stat.Quantile(0.5, stat.Empirical, values, nil)
	}
	return sortedValues(medians)
}

// MonthlyRainfall sums the precipitation of one calendar month for each year.
// Years where the month has no measured precipitation at all are omitted.
func MonthlyRainfall(ts types.TimeSeries, month time.Month) []YearValue {
	totals := make(map[int]float64)
	for _, obs := range ts.Observations {
		if obs.Date.Month() != month || obs.Precipitation == nil {
			continue
		}
		totals[obs.Date.Year()] += *obs.Precipitation
	}
	return sortedValues(totals)
}

// DayOverYears extracts the min/mean/max temperatures of one calendar day
// across all years in the series.
func DayOverYears(ts types.TimeSeries, month time.Month, day int) []DayTemperatures {
	var out []DayTemperatures
	for _, obs := range ts.Observations {
		if obs.Date.Month() != month || obs.Date.Day() != day {
			continue
		}
		out = append(out, DayTemperatures{
			Year:     obs.Date.Year(),
			TempMin:  obs.TempMin,
			TempMean: obs.TempMean,
			TempMax:  obs.TempMax,
		})
	}
	return out
}

// SunshineFraction computes, per year, the mean ratio of measured sunshine
// duration to the astronomical day length at the station's latitude.
func SunshineFraction(ts types.TimeSeries, latitude float64) []YearValue {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, obs := range ts.Observations {
		if obs.SunshineHours == nil {
			continue
		}
		dayLength := solar.DayLengthHours(obs.Date, latitude)
		if dayLength <= 0 {
			continue
		}
		ratio := *obs.SunshineHours / dayLength
		if ratio > 1 {
			ratio = 1 // instrument can over-report around low sun angles
		}
		year := obs.Date.Year()
		sums[year] += ratio
		counts[year]++
	}

	means := make(map[int]float64, len(sums))
	for year, sum := range sums {
		means[year] = sum / float64(counts[year])
	}
	return sortedValues(means)
}

// Trend fits a least-squares line through the (year, value) points. It needs
// at least two points; fewer return a zero line and false.
func Trend(points []YearValue) (TrendLine, bool) {
	if len(points) < 2 {
		return TrendLine{}, false
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return TrendLine{Intercept: alpha, Slope: beta}, true
}

// At evaluates the trend line for a year.
func (tl TrendLine) At(year int) float64 {
	return tl.Intercept + tl.Slope*float64(year)
}

func sortedCounts(byYear map[int]*HeatDayCounts) []HeatDayCounts {
	out := make([]HeatDayCounts, 0, len(byYear))
	for _, counts := range byYear {
		out = append(out, *counts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func sortedValues(byYear map[int]float64) []YearValue {
	out := make([]YearValue, 0, len(byYear))
	for year, value := range byYear {
		out = append(out, YearValue{Year: year, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
