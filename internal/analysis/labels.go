package analysis

// PrecipFormLabel maps the DWD RSKF precipitation-form code to a label.
func PrecipFormLabel(code float64) string {
	switch int(code) {
	case 0:
		return "none"
	case 1, 4, 6:
		return "rain"
	case 7:
		return "snow"
	case 8:
		return "sleet"
	case 9:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// CloudCoverLabel maps the NM daily mean cloud cover (eighths) to a label.
func CloudCoverLabel(eighths float64) string {
	switch {
	case eighths < 0 || eighths > 8:
		return "unknown"
	case eighths < 1:
		return "clear"
	case eighths < 3:
		return "mostly clear"
	case eighths < 5:
		return "partly cloudy"
	case eighths < 7:
		return "mostly cloudy"
	default:
		return "overcast"
	}
}
