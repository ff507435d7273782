package forecast

import (
	"time"

	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/chrissnell/foilcast/pkg/lunar"
	"github.com/chrissnell/foilcast/pkg/solar"
)

// Open-Meteo reports local wall-clock times without an offset
const hourLayout = "2006-01-02T15:04"

// HourlyPoint is one hour of the combined history and forecast line
type HourlyPoint struct {
	Time        time.Time `json:"time"`
	Label       string    `json:"label"`       // "Mon 15:04"
	DisplayDate string    `json:"displayDate"` // "Jan 02"
	Speed       *float64  `json:"speed"`
	Gusts       *float64  `json:"gusts"`
	Direction   *float64  `json:"direction"`
	Temperature *float64  `json:"temperature"`
	IsForecast  bool      `json:"isForecast"`
}

// Location returns the zone the response's timestamps are expressed in
func (r *Response) Location() *time.Location {
	if r.Timezone != "" {
		if loc, err := time.LoadLocation(r.Timezone); err == nil {
			return loc
		}
	}
	return time.FixedZone(r.Timezone, r.UTCOffsetSeconds)
}

// ProcessChartData turns the parallel hourly arrays into points. Hours after
// now are flagged as forecast. A response without an hourly block yields an
// empty slice.
func ProcessChartData(resp *Response, now time.Time) []HourlyPoint {
	points := []HourlyPoint{}
	if resp == nil || resp.Hourly == nil {
		return points
	}

	h := resp.Hourly
	loc := resp.Location()

	for i, ts := range h.Time {
		t, err := time.ParseInLocation(hourLayout, ts, loc)
		if err != nil {
			continue
		}
		points = append(points, HourlyPoint{
			Time:        t,
			Label:       t.Format("Mon 15:04"),
			DisplayDate: t.Format("Jan 02"),
			Speed:       at(h.WindSpeed, i),
			Gusts:       at(h.WindGusts, i),
			Direction:   at(h.WindDirection, i),
			Temperature: at(h.Temperature, i),
			IsForecast:  t.After(now),
		})
	}
	return points
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// DaySummary condenses one local day of points
type DaySummary struct {
	Date        string          `json:"date"`
	DisplayDate string          `json:"displayDate"`
	MaxSpeed    *float64        `json:"maxSpeed"`
	MaxGust     *float64        `json:"maxGust"`
	Sunrise     *time.Time      `json:"sunrise,omitempty"`
	Sunset      *time.Time      `json:"sunset,omitempty"`
	Moon        lunar.MoonPhase `json:"moon"`
	Tide        lunar.Tide      `json:"tide"`
}

// DaySummaries groups points by local date, in order, with the day's peak
// wind, daylight window and moon phase.
func DaySummaries(points []HourlyPoint, loc config.LocationData) []DaySummary {
	summaries := []DaySummary{}
	index := map[string]int{}

	for _, p := range points {
		key := p.Time.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			y, m, d := p.Time.Date()
			noon := time.Date(y, m, d, 12, 0, 0, 0, p.Time.Location())
			moon := lunar.Calculate(noon)

			s := DaySummary{
				Date:        key,
				DisplayDate: p.DisplayDate,
				Moon:        moon,
				Tide:        moon.TideRange(),
			}
			if rise, set, ok := solar.Daylight(noon, loc.Latitude, loc.Longitude); ok {
				s.Sunrise, s.Sunset = &rise, &set
			}

			summaries = append(summaries, s)
			i = len(summaries) - 1
			index[key] = i
		}

		s := &summaries[i]
		s.MaxSpeed = maxOf(s.MaxSpeed, p.Speed)
		s.MaxGust = maxOf(s.MaxGust, p.Gusts)
	}
	return summaries
}

func maxOf(cur, v *float64) *float64 {
	if v == nil {
		return cur
	}
	if cur == nil || *v > *cur {
		x := *v
		return &x
	}
	return cur
}
