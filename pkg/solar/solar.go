// Package solar computes when the sun is high enough to be worth filming.
package solar

import (
	"errors"
	"math"
	"time"
)

// ErrNoCrossing is returned when the sun never crosses the minimum elevation,
// as in polar day or polar night.
var ErrNoCrossing = errors.New("sun does not cross minimum elevation")

// Location is a camera site.
type Location struct {
	Latitude  float64
	Longitude float64
	// Altitude above sea level, in meters.
	Altitude float64
	// MinElevation is the sun elevation in degrees that starts and ends the day.
	MinElevation float64
}

// dip returns how far below the horizon an observer at altitude meters can see.
func dip(altitude float64) float64 {
	if altitude <= 0 {
		return 0
	}
	return 0.0293 * math.Sqrt(altitude)
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

// julian returns the Julian day for t.
func julian(t time.Time) float64 {
	return float64(t.UTC().UnixNano())/float64(24*time.Hour) + 2440587.5
}

// Elevation returns the geometric elevation of the sun's center above the
// horizon at t, in degrees, using the NOAA solar calculator approximation.
func Elevation(t time.Time, lat, lon float64) float64 {
	jc := (julian(t) - 2451545) / 36525

	meanLong := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360)
	meanAnom := 357.52911 + jc*(35999.05029-0.0001537*jc)
	ecc := 0.016708634 - jc*(0.000042037+0.0000001267*jc)

	center := math.Sin(rad(meanAnom))*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(rad(2*meanAnom))*(0.019993-0.000101*jc) +
		math.Sin(rad(3*meanAnom))*0.000289
	omega := 125.04 - 1934.136*jc
	appLong := meanLong + center - 0.00569 - 0.00478*math.Sin(rad(omega))

	meanObliq := 23 + (26+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60)/60
	obliq := meanObliq + 0.00256*math.Cos(rad(omega))
	decl := math.Asin(math.Sin(rad(obliq)) * math.Sin(rad(appLong)))

	y := math.Pow(math.Tan(rad(obliq/2)), 2)
	l0, m := rad(meanLong), rad(meanAnom)
	eqTime := 4 * deg(y*math.Sin(2*l0)-2*ecc*math.Sin(m)+4*ecc*y*math.Sin(m)*math.Cos(2*l0)-
		0.5*y*y*math.Sin(4*l0)-1.25*ecc*ecc*math.Sin(2*m))

	u := t.UTC()
	minutes := float64(u.Hour()*60+u.Minute()) + float64(u.Second())/60 + float64(u.Nanosecond())/6e10
	solarTime := math.Mod(minutes+eqTime+4*lon, 1440)
	if solarTime < 0 {
		solarTime += 1440
	}
	hourAngle := solarTime/4 - 180

	cosZenith := math.Sin(rad(lat))*math.Sin(decl) + math.Cos(rad(lat))*math.Cos(decl)*math.Cos(rad(hourAngle))
	cosZenith = math.Max(-1, math.Min(1, cosZenith))
	return 90 - deg(math.Acos(cosZenith))
}

// Window returns the first time the sun rises through the minimum elevation
// between local midnight and noon of day, and the last time it sets through
// it between noon and 23:59. Times are in day's location.
func Window(day time.Time, loc Location) (start, end time.Time, err error) {
	tz := day.Location()
	y, mo, d := day.Date()
	midnight := time.Date(y, mo, d, 0, 0, 0, 0, tz)
	noon := time.Date(y, mo, d, 12, 0, 0, 0, tz)
	last := time.Date(y, mo, d, 23, 59, 0, 0, tz)

	threshold := loc.MinElevation - dip(loc.Altitude)
	above := func(t time.Time) bool {
		return Elevation(t, loc.Latitude, loc.Longitude) >= threshold
	}

	start, ok := rising(midnight, noon, above)
	if !ok {
		return time.Time{}, time.Time{}, ErrNoCrossing
	}
	end, ok = setting(noon, last, above)
	if !ok {
		return time.Time{}, time.Time{}, ErrNoCrossing
	}
	return start.In(tz), end.In(tz), nil
}

const step = time.Minute

// rising finds the first below-to-above transition in [from, to].
func rising(from, to time.Time, above func(time.Time) bool) (time.Time, bool) {
	prev := above(from)
	for t := from.Add(step); !t.After(to); t = t.Add(step) {
		cur := above(t)
		if !prev && cur {
			return bisect(t.Add(-step), t, above, true), true
		}
		prev = cur
	}
	return time.Time{}, false
}

// setting finds the last above-to-below transition in [from, to].
func setting(from, to time.Time, above func(time.Time) bool) (time.Time, bool) {
	next := above(to)
	for t := to.Add(-step); !t.Before(from); t = t.Add(-step) {
		cur := above(t)
		if cur && !next {
			return bisect(t, t.Add(step), above, false), true
		}
		next = cur
	}
	return time.Time{}, false
}

// bisect narrows a transition between lo and hi down to a second.
func bisect(lo, hi time.Time, above func(time.Time) bool, rise bool) time.Time {
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		if above(mid) == rise {
			hi = mid
		} else {
			lo = mid
		}
	}
	if rise {
		return hi.Truncate(time.Second)
	}
	return lo.Truncate(time.Second)
}
