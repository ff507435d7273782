package solar

import (
	"testing"
	"time"
)

func TestDaylight(t *testing.T) {
	perth := time.FixedZone("AWST", 8*3600)
	seattle := time.FixedZone("PDT", -7*3600)

	tests := []struct {
		name      string
		date      time.Time
		latitude  float64
		longitude float64
		sunrise   string // local HH:MM, ±15 min
		sunset    string
	}{
		{
			name:      "Equator at equinox",
			date:      time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			latitude:  0,
			longitude: 0,
			sunrise:   "06:05",
			sunset:    "18:10",
		},
		{
			name:      "Perth midsummer",
			date:      time.Date(2024, 1, 15, 9, 0, 0, 0, perth),
			latitude:  -32.013,
			longitude: 115.829,
			sunrise:   "05:24",
			sunset:    "19:25",
		},
		{
			name:      "Perth midwinter",
			date:      time.Date(2024, 6, 21, 9, 0, 0, 0, perth),
			latitude:  -32.013,
			longitude: 115.829,
			sunrise:   "07:14",
			sunset:    "17:20",
		},
		{
			name:      "Seattle summer solstice",
			date:      time.Date(2024, 6, 21, 12, 0, 0, 0, seattle),
			latitude:  47.6,
			longitude: -122.3,
			sunrise:   "05:11",
			sunset:    "21:10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rise, set, ok := Daylight(tt.date, tt.latitude, tt.longitude)
			if !ok {
				t.Fatal("expected sunrise and sunset")
			}

			y, m, d := tt.date.Date()
			for _, c := range []struct {
				label string
				got   time.Time
				want  string
			}{{"sunrise", rise, tt.sunrise}, {"sunset", set, tt.sunset}} {
				gy, gm, gd := c.got.Date()
				if gy != y || gm != m || gd != d {
					t.Errorf("%s on %s, want same calendar day as %s", c.label, c.got, tt.date)
				}

				want, _ := time.ParseInLocation("2006-01-02 15:04", tt.date.Format("2006-01-02")+" "+c.want, tt.date.Location())
				diff := c.got.Sub(want)
				if diff < 0 {
					diff = -diff
				}
				if diff > 15*time.Minute {
					t.Errorf("%s = %s, want ~%s (off by %s)", c.label, c.got.Format("15:04"), c.want, diff)
				}
			}

			if !rise.Before(set) {
				t.Errorf("sunrise %s not before sunset %s", rise, set)
			}
		})
	}
}

func TestDaylightPolar(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
	}{
		{"Svalbard midnight sun", time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)},
		{"Svalbard polar night", time.Date(2024, 12, 21, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := Daylight(tt.date, 78.2, 15.6); ok {
				t.Error("expected no sunrise/sunset")
			}
		})
	}
}

func TestIsDaylight(t *testing.T) {
	perth := time.FixedZone("AWST", 8*3600)

	tests := []struct {
		name string
		t    time.Time
		lat  float64
		want bool
	}{
		{"Perth noon", time.Date(2024, 1, 15, 12, 0, 0, 0, perth), -32.013, true},
		{"Perth before dawn", time.Date(2024, 1, 15, 4, 30, 0, 0, perth), -32.013, false},
		{"Perth late evening", time.Date(2024, 1, 15, 20, 0, 0, 0, perth), -32.013, false},
		// polar night falls back to the fixed window
		{"polar fallback inside", time.Date(2024, 12, 21, 10, 0, 0, 0, time.UTC), 78.2, true},
		{"polar fallback outside", time.Date(2024, 12, 21, 20, 0, 0, 0, time.UTC), 78.2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lon := 115.829
			if tt.lat > 70 {
				lon = 15.6
			}
			if got := IsDaylight(tt.t, tt.lat, lon, 6, 18); got != tt.want {
				t.Errorf("IsDaylight(%s) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}
