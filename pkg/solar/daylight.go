// Package solar computes sunrise and sunset for a riding spot.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// horizonAltitude is the sun's altitude at apparent sunrise, accounting for
// refraction and the solar disc radius
const horizonAltitude = -0.833

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// Daylight returns sunrise and sunset on the calendar day of date, as seen in
// date's location. ok is false during polar day or polar night.
func Daylight(date time.Time, latitude, longitude float64) (sunrise, sunset time.Time, ok bool) {
	loc := date.Location()
	y, m, d := date.Date()
	midnightUTC := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	decl, eot := sunPosition(midnightUTC.Add(12 * time.Hour))

	latRad := degToRad(latitude)
	cosH := (math.Sin(degToRad(horizonAltitude)) - math.Sin(latRad)*math.Sin(decl)) /
		(math.Cos(latRad) * math.Cos(decl))
	if cosH < -1 || cosH > 1 {
		return time.Time{}, time.Time{}, false
	}

	halfDayMinutes := radToDeg(math.Acos(cosH)) * 4

	// Minutes after UTC midnight; may be negative or exceed a day for
	// locations far from Greenwich, which keeps both events on the local date.
	noon := 720 - 4*longitude - eot

	sunrise = midnightUTC.Add(minutes(noon - halfDayMinutes)).In(loc)
	sunset = midnightUTC.Add(minutes(noon + halfDayMinutes)).In(loc)
	return sunrise, sunset, true
}

// IsDaylight reports whether t falls between sunrise and sunset. When the sun
// doesn't rise or set, fallbackStart and fallbackEnd (hours of the local day,
// inclusive) are used instead.
func IsDaylight(t time.Time, latitude, longitude float64, fallbackStart, fallbackEnd int) bool {
	rise, set, ok := Daylight(t, latitude, longitude)
	if !ok {
		h := t.Hour()
		return h >= fallbackStart && h <= fallbackEnd
	}
	return !t.Before(rise) && !t.After(set)
}

// sunPosition returns the solar declination in radians and the equation of
// time in minutes at t.
func sunPosition(t time.Time) (declination, eotMinutes float64) {
	T := (julian.TimeToJD(t) - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)

	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	omega := 125.04 - 1934.136*T
	lambda := L0 + C - 0.00569 - 0.00478*math.Sin(degToRad(omega))

	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	declination = math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))

	y := math.Pow(math.Tan(degToRad(eps0)/2), 2)
	eotMinutes = radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	return declination, eotMinutes
}

func minutes(m float64) time.Duration {
	return time.Duration(math.Round(m * float64(time.Minute)))
}
