package recommend

import (
	"testing"
	"time"

	"github.com/chrissnell/foilcast/internal/forecast"
	"github.com/chrissnell/foilcast/pkg/config"
)

func f(v float64) *float64 { return &v }

func TestWindRating(t *testing.T) {
	tests := []struct {
		name      string
		speed     *float64
		direction float64
		want      Rating
	}{
		{"missing", nil, 200, Rating{"N/A", 0}},
		{"calm", f(0), 200, Rating{"Too Light", 1}},
		{"just under 15", f(14.9), 200, Rating{"Too Light", 1}},
		{"15 on axis", f(15), 200, Rating{"Excellent", 5}},
		{"15 off axis", f(15), 90, Rating{"Good (Off-Axis)", 3}},
		{"lower edge inclusive", f(20), 135, Rating{"Excellent", 5}},
		{"upper edge inclusive", f(20), 270, Rating{"Excellent", 5}},
		{"just past upper edge", f(20), 270.1, Rating{"Good (Off-Axis)", 3}},
		{"28 on axis", f(28), 200, Rating{"Strong & Good", 4}},
		{"28 off axis", f(28), 10, Rating{"Strong (Gusty)", 2}},
		{"gale off axis", f(45), 359, Rating{"Strong (Gusty)", 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WindRating(tt.speed, tt.direction, DefaultDirectionRange); got != tt.want {
				t.Errorf("WindRating() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDirectionRangeFor(t *testing.T) {
	if got := DirectionRangeFor(config.LocationData{}); got != DefaultDirectionRange {
		t.Errorf("unset range = %+v, want default", got)
	}
	got := DirectionRangeFor(config.LocationData{IdealDirectionMin: 180, IdealDirectionMax: 300})
	if got.Min != 180 || got.Max != 300 {
		t.Errorf("configured range = %+v", got)
	}
}

func TestGearRecommendation(t *testing.T) {
	quiver := []Gear{
		{Type: "wing", Model: "Strike", Size: 3.5},
		{Type: "board", Model: "Kujira", Size: 85},
		{Type: "wing", Model: "Strike", Size: 5},
		{Type: "wing", Model: "Unit", Size: 6},
	}

	tests := []struct {
		name  string
		speed float64
		gear  []Gear
		want  Advice
	}{
		{"no wind", 0, nil, Advice{"No wind data", ""}},
		{"light", 15, nil, Advice{"Light Wind Gear", "Large Foil / 6m+ Wing or Surf"}},
		{"moderate", 22, nil, Advice{"5m - 6m Wing", "Standard Foil"}},
		{"fresh", 35, nil, Advice{"4m - 5m Wing", "Small-Med Foil"}},
		{"strong", 45, nil, Advice{"3m - 4m Wing (Small)", "High Wind Foil!"}},
		// 25 km/h = 13.5 kts, ideal 5.56 m, 6 beats 5 (0.44 vs 0.56)
		{"personalised moderate", 25, quiver, Advice{"Use your 6m Unit", "(Personalized for 13.5 kts)"}},
		// 40 km/h = 21.6 kts, ideal 3.47 m
		{"personalised strong", 40, quiver, Advice{"Use your 3.5m Strike", "(Personalized for 21.6 kts)"}},
		// 5 km/h clamps to 5 kts, ideal 15 m
		{"personalised drifting", 5, quiver, Advice{"Use your 6m Unit", "(Personalized for 2.7 kts)"}},
		{"boards only", 25, []Gear{{Type: "board", Model: "Kujira", Size: 85}}, Advice{"5m - 6m Wing", "Standard Foil"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GearRecommendation(tt.speed, tt.gear); got != tt.want {
				t.Errorf("GearRecommendation(%v) = %+v, want %+v", tt.speed, got, tt.want)
			}
		})
	}
}

func TestPickWingTiePrefersLarger(t *testing.T) {
	// 15 kts -> ideal 5 m; 4 and 6 are equally close
	knots := 15.0
	got, ok := pickWing([]Gear{{Type: "wing", Size: 4}, {Type: "wing", Size: 6}}, knots)
	if !ok || got.Size != 6 {
		t.Errorf("pickWing = %+v, %v; want the 6m wing", got, ok)
	}
}

func TestSuggestBestSessions(t *testing.T) {
	awst := time.FixedZone("AWST", 8*3600)
	perth := config.LocationData{ID: "perth", Latitude: -32.013, Longitude: 115.829}
	now := time.Date(2024, 1, 15, 9, 30, 0, 0, awst)

	at := func(hour int, speed, dir float64) forecast.HourlyPoint {
		return forecast.HourlyPoint{
			Time:      time.Date(2024, 1, 15, hour, 0, 0, 0, awst),
			Speed:     f(speed),
			Direction: f(dir),
		}
	}

	points := []forecast.HourlyPoint{
		at(9, 20, 200),  // past
		at(10, 20, 90),  // off axis, 3
		at(11, 30, 200), // strong, 4
		at(12, 10, 200), // too light
		at(13, 20, 200), // excellent, 5
		at(14, 22, 220), // excellent, 5
		at(15, 45, 20),  // strong gusty, 2
		at(21, 20, 200), // after sunset
		{Time: time.Date(2024, 1, 15, 16, 0, 0, 0, awst)}, // no data
	}

	got := SuggestBestSessions(points, nil, DefaultDirectionRange, perth, now)

	wantHours := []int{13, 14, 11, 10}
	if len(got) != len(wantHours) {
		t.Fatalf("got %d sessions, want %d: %+v", len(got), len(wantHours), got)
	}
	for i, h := range wantHours {
		if got[i].Time.Hour() != h {
			t.Errorf("session %d at %02d:00, want %02d:00", i, got[i].Time.Hour(), h)
		}
		if got[i].Gear.Text == "" {
			t.Errorf("session %d has no gear advice", i)
		}
	}
	if got[0].Rating.Rating != 5 || got[3].Rating.Rating != 3 {
		t.Errorf("ratings not best first: %+v", got)
	}
}

func TestSuggestBestSessionsEmpty(t *testing.T) {
	got := SuggestBestSessions(nil, nil, DefaultDirectionRange, config.LocationData{}, time.Now())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
