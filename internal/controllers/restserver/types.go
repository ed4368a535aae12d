package restserver

import "github.com/retrowetter/retrowetter/internal/analysis"

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// heatDaysResponse carries per-year counts with an optional trend over the
// heat day counts. Trend is omitted when fewer than two years have data.
type heatDaysResponse struct {
	Years []analysis.HeatDayCounts `json:"years"`
	Trend *analysis.TrendLine      `json:"trend,omitempty"`
}

type yearValuesResponse struct {
	Years []analysis.YearValue `json:"years"`
	Trend *analysis.TrendLine  `json:"trend,omitempty"`
}
