// Package lunar estimates the moon phase from the ecliptic longitudes of the
// Sun and Moon, and classifies the tidal range it drives. Phase timing is
// good to an hour or two, which is plenty for planning a session.
package lunar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// SynodicMonth is the average length of the lunar cycle in days
const SynodicMonth = 29.530588853

// springWindowDays is how close to new or full moon counts as spring tide
const springWindowDays = 2.0

// Tide describes the tidal range expected from the moon phase
type Tide string

const (
	TideSpring Tide = "spring"
	TideNeap   Tide = "neap"
	TideMid    Tide = "mid"
)

// MoonPhase describes the moon at an instant
type MoonPhase struct {
	Phase        float64 `json:"phase"`        // [0,1): 0=new, 0.5=full
	Illumination float64 `json:"illumination"` // [0,1]
	AgeDays      float64 `json:"ageDays"`      // days since new moon
	IsWaxing     bool    `json:"isWaxing"`
	PhaseName    string  `json:"phaseName"`
}

// Calculate computes the moon phase at t
func Calculate(t time.Time) MoonPhase {
	T := (julian.TimeToJD(t.UTC()) - 2451545.0) / 36525.0

	elongation := normalize(moonLongitude(T) - sunLongitude(T))
	phase := elongation / 360.0
	illumination := (1 - math.Cos(elongation*math.Pi/180)) / 2
	waxing := elongation < 180

	return MoonPhase{
		Phase:        phase,
		Illumination: illumination,
		AgeDays:      phase * SynodicMonth,
		IsWaxing:     waxing,
		PhaseName:    phaseName(illumination, waxing),
	}
}

// TideRange classifies the tide: spring within two mean days of a new or
// full moon, neap within two mean days of a quarter, mid otherwise. Distances
// are measured on the phase angle, so a quarter is wherever the moon is
// actually half lit rather than a fixed 7.4 days after new moon.
func (m MoonPhase) TideRange() Tide {
	window := springWindowDays / SynodicMonth

	// distance, as a fraction of a cycle, to the nearest new/full moon and quarter
	toSyzygy := math.Abs(math.Remainder(m.Phase, 0.5))
	toQuarter := math.Abs(math.Remainder(m.Phase-0.25, 0.5))

	switch {
	case toSyzygy <= window:
		return TideSpring
	case toQuarter <= window:
		return TideNeap
	default:
		return TideMid
	}
}

func phaseName(illumination float64, waxing bool) string {
	switch {
	case illumination < 0.01:
		return "New Moon"
	case illumination > 0.99:
		return "Full Moon"
	case math.Abs(illumination-0.5) <= 0.01:
		if waxing {
			return "First Quarter"
		}
		return "Third Quarter"
	case illumination < 0.5:
		if waxing {
			return "Waxing Crescent"
		}
		return "Waning Crescent"
	case waxing:
		return "Waxing Gibbous"
	default:
		return "Waning Gibbous"
	}
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func sin(deg float64) float64 {
	return math.Sin(normalize(deg) * math.Pi / 180)
}

// sunLongitude is the Sun's apparent ecliptic longitude in degrees
func sunLongitude(T float64) float64 {
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := 357.52911 + 35999.05029*T - 0.0001537*T*T

	C := (1.914602-0.004817*T-0.000014*T*T)*sin(M) +
		(0.019993-0.000101*T)*sin(2*M) +
		0.000289*sin(3*M)

	return normalize(L0 + C)
}

// moonLongitude is the Moon's ecliptic longitude in degrees using the
// largest periodic terms
func moonLongitude(T float64) float64 {
	T2, T3, T4 := T*T, T*T*T, T*T*T*T

	L := 218.3164477 + 481267.88123421*T - 0.0015786*T2 + T3/538841 - T4/65194000
	D := 297.8501921 + 445267.1114034*T - 0.0018819*T2 + T3/545868 - T4/113065000
	M := 357.5291092 + 35999.0502909*T - 0.0001536*T2 + T3/24490000
	Mp := 134.9633964 + 477198.8675055*T + 0.0087414*T2 + T3/69699 - T4/14712000
	F := 93.2720950 + 483202.0175233*T - 0.0036539*T2 - T3/3526000 + T4/863310000

	return normalize(L +
		6.288774*sin(Mp) +
		1.274027*sin(2*D-Mp) +
		0.658314*sin(2*D) +
		0.213618*sin(2*Mp) -
		0.185116*sin(M) -
		0.114332*sin(2*F) +
		0.058793*sin(2*D-2*Mp) +
		0.057066*sin(2*D-M-Mp) +
		0.053322*sin(2*D+Mp) +
		0.045758*sin(2*D-M))
}
