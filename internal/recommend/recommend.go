// Package recommend rates forecast wind for foiling and suggests gear and
// session times.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/chrissnell/foilcast/internal/forecast"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/chrissnell/foilcast/pkg/solar"
)

const kmhToKnots = 0.539957

// Fallback daylight window, local hours inclusive
const (
	fallbackFirstHour = 6
	fallbackLastHour  = 18
)

// DirectionRange is an inclusive range of wind directions in degrees
type DirectionRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultDirectionRange is the onshore/cross-shore sector for the home spot
var DefaultDirectionRange = DirectionRange{Min: 135, Max: 270}

// Contains reports whether dir is within the range, inclusive
func (r DirectionRange) Contains(dir float64) bool {
	return dir >= r.Min && dir <= r.Max
}

// DirectionRangeFor returns the location's ideal wind sector, or the default
// when none is configured.
func DirectionRangeFor(loc config.LocationData) DirectionRange {
	if loc.IdealDirectionMin == 0 && loc.IdealDirectionMax == 0 {
		return DefaultDirectionRange
	}
	return DirectionRange{Min: loc.IdealDirectionMin, Max: loc.IdealDirectionMax}
}

// Rating scores wind conditions from 0 (no data) to 5
type Rating struct {
	Label  string `json:"label"`
	Rating int    `json:"rating"`
}

// WindRating scores a wind speed (km/h) and direction (degrees)
func WindRating(speedKmh *float64, direction float64, ideal DirectionRange) Rating {
	if speedKmh == nil {
		return Rating{Label: "N/A", Rating: 0}
	}

	onAxis := ideal.Contains(direction)
	speed := *speedKmh

	switch {
	case speed < 15:
		return Rating{Label: "Too Light", Rating: 1}
	case speed < 28 && onAxis:
		return Rating{Label: "Excellent", Rating: 5}
	case speed < 28:
		return Rating{Label: "Good (Off-Axis)", Rating: 3}
	case onAxis:
		return Rating{Label: "Strong & Good", Rating: 4}
	default:
		return Rating{Label: "Strong (Gusty)", Rating: 2}
	}
}

// Gear is an item from the rider's quiver
type Gear struct {
	Type  string  `json:"type"` // wing, board, foil
	Model string  `json:"model"`
	Size  float64 `json:"size"`
}

// Advice is a two-line gear recommendation
type Advice struct {
	Text string `json:"text"`
	Sub  string `json:"sub"`
}

// GearRecommendation suggests a wing and foil for a wind speed in km/h. When
// the rider owns wings, the one closest to the ideal size is named instead.
func GearRecommendation(speedKmh float64, gear []Gear) Advice {
	if speedKmh == 0 {
		return Advice{Text: "No wind data"}
	}
	knots := speedKmh * kmhToKnots

	var advice Advice
	switch {
	case knots < 10:
		advice = Advice{Text: "Light Wind Gear", Sub: "Large Foil / 6m+ Wing or Surf"}
	case knots < 15:
		advice = Advice{Text: "5m - 6m Wing", Sub: "Standard Foil"}
	case knots < 22:
		advice = Advice{Text: "4m - 5m Wing", Sub: "Small-Med Foil"}
	default:
		advice = Advice{Text: "3m - 4m Wing (Small)", Sub: "High Wind Foil!"}
	}

	if wing, ok := pickWing(gear, knots); ok {
		advice = Advice{
			Text: fmt.Sprintf("Use your %sm %s", strconv.FormatFloat(wing.Size, 'f', -1, 64), wing.Model),
			Sub:  fmt.Sprintf("(Personalized for %.1f kts)", knots),
		}
	}
	return advice
}

// pickWing returns the owned wing closest to 75/knots m², preferring the
// larger wing on a tie.
func pickWing(gear []Gear, knots float64) (Gear, bool) {
	var wings []Gear
	for _, g := range gear {
		if g.Type == "wing" {
			wings = append(wings, g)
		}
	}
	if len(wings) == 0 {
		return Gear{}, false
	}
	sort.SliceStable(wings, func(i, j int) bool { return wings[i].Size > wings[j].Size })

	ideal := 75 / math.Max(knots, 5)
	best := wings[0]
	for _, w := range wings[1:] {
		if math.Abs(w.Size-ideal) < math.Abs(best.Size-ideal) {
			best = w
		}
	}
	return best, true
}

// Session is a recommended forecast slot
type Session struct {
	forecast.HourlyPoint
	Rating Rating `json:"rating"`
	Gear   Advice `json:"gear"`
}

// SuggestBestSessions picks future daylight hours rated 3 or better, best
// first. Equal ratings keep forecast order.
func SuggestBestSessions(points []forecast.HourlyPoint, gear []Gear, ideal DirectionRange, loc config.LocationData, now time.Time) []Session {
	sessions := []Session{}

	for _, p := range points {
		if !p.Time.After(now) {
			continue
		}
		if !solar.IsDaylight(p.Time, loc.Latitude, loc.Longitude, fallbackFirstHour, fallbackLastHour) {
			continue
		}

		var dir float64
		if p.Direction != nil {
			dir = *p.Direction
		}
		rating := WindRating(p.Speed, dir, ideal)
		if rating.Rating < 3 {
			continue
		}

		var speed float64
		if p.Speed != nil {
			speed = *p.Speed
		}
		sessions = append(sessions, Session{
			HourlyPoint: p,
			Rating:      rating,
			Gear:        GearRecommendation(speed, gear),
		})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Rating.Rating > sessions[j].Rating.Rating
	})
	return sessions
}
