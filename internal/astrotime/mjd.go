// Package astrotime converts between wall-clock times and the Modified
// Julian Dates used as the time coordinate of every light curve.
package astrotime

import (
	"math"
	"time"
)

// mjdOffset is the Julian Date of MJD 0 (1858-11-17 00:00 UTC).
const mjdOffset = 2400000.5

// SurveyStartMJD is the first night of the simulated survey (2022-01-01).
// Flare templates are anchored to it.
const SurveyStartMJD = 59580.0

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Jan/Feb count as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// MJD converts a time.Time to Modified Julian Date.
func MJD(t time.Time) float64 {
	return JulianDate(t) - mjdOffset
}

// TimeFromMJD converts a Modified Julian Date back to UTC, rounded to the
// microsecond.
func TimeFromMJD(mjd float64) time.Time {
	days := math.Floor(mjd)
	frac := mjd - days
	epoch := time.Date(1858, 11, 17, 0, 0, 0, 0, time.UTC)
	t := epoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(math.Round(frac*86400e6)) * time.Microsecond)
}
