// Package solar provides astronomical day-length calculations used to relate
// measured sunshine duration to the maximum possible for a station's latitude.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

// declination returns the solar declination in radians for the given instant,
// from the low-accuracy series in Meeus chapter 25.
func declination(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	T := (jd - 2451545.0) / 36525.0

	L0 := math.Mod(280.46646+T*(36000.76983+T*0.0003032), 360.0)
	M := math.Mod(357.52911+T*(35999.05029-T*0.0001537), 360.0)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	sunLong := L0 + C
	omega := 125.04 - 1934.136*T
	lambda := sunLong - 0.00569 - 0.00478*math.Sin(degToRad(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60

	return math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))
}

// DayLengthHours returns the time between sunrise and sunset in hours for the
// given calendar day and latitude. It returns 24 during polar day and 0
// during polar night.
func DayLengthHours(date time.Time, latitude float64) float64 {
	// Evaluate the declination at local solar noon for the day.
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC)
	deltaRad := declination(noon)
	latRad := degToRad(latitude)

	// cos(H) = -tan(lat) * tan(declination), H the hour angle at the horizon
	cosH := -math.Tan(latRad) * math.Tan(deltaRad)
	if cosH <= -1.0 {
		return 24.0 // sun never sets
	}
	if cosH >= 1.0 {
		return 0.0 // sun never rises
	}

	hourAngleDeg := math.Acos(cosH) * 180.0 / math.Pi
	return 2.0 * hourAngleDeg / 15.0 // 15 degrees of hour angle per hour
}
