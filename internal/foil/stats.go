package foil

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Stats are the session totals shown next to the flight chart.
type Stats struct {
	TotalFoilTime   string `json:"totalFoilTime"` // minutes, one decimal
	NumberOfFlights int    `json:"numberOfFlights"`
	PercentFoil     string `json:"percentFoil"` // percent of moving time, one decimal
	TotalRuns       int    `json:"totalRuns"`
}

// FoilSeconds sums the elapsed duration of every segment.
func FoilSeconds(times []float64, segments []Segment) float64 {
	total := 0.0
	for _, seg := range segments {
		total += times[seg.End] - times[seg.Start]
	}
	return total
}

// MovingSeconds sums the intervals between consecutive samples whose average
// speed is above minSpeed.
func MovingSeconds(times, velocity []float64, minSpeed float64) float64 {
	moving := 0.0
	for i := 1; i < len(times) && i < len(velocity); i++ {
		if (velocity[i]+velocity[i-1])/2 > minSpeed {
			moving += times[i] - times[i-1]
		}
	}
	return moving
}

// PercentFoil returns foil time as a percentage of moving time, capped at 100.
// ok is false when there was no moving time to compare against.
func PercentFoil(foilSeconds, movingSeconds float64) (pct float64, ok bool) {
	if movingSeconds <= 0 {
		return 0, false
	}
	pct = foilSeconds / movingSeconds * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, true
}

// CountRuns groups flights separated by at most gap seconds and returns the
// number of groups.
func CountRuns(times []float64, segments []Segment, gap float64) int {
	if len(segments) == 0 {
		return 0
	}

	runs := 1
	for i := 1; i < len(segments); i++ {
		if times[segments[i].Start]-times[segments[i-1].End] > gap {
			runs++
		}
	}
	return runs
}

// ComputeStats derives the session totals from the detected segments.
func ComputeStats(s Streams, segments []Segment, p Params) Stats {
	foilSeconds := FoilSeconds(s.Time, segments)
	moving := MovingSeconds(s.Time, s.Velocity, p.MovingSpeed)

	percent := "0"
	if pct, ok := PercentFoil(foilSeconds, moving); ok {
		percent = oneDecimal(pct)
	}

	return Stats{
		TotalFoilTime:   oneDecimal(foilSeconds / 60),
		NumberOfFlights: len(segments),
		PercentFoil:     percent,
		TotalRuns:       CountRuns(s.Time, segments, p.RunGap),
	}
}

// oneDecimal rounds the exact binary value of v, not its shortest decimal
// form, so 9.0/60 (0.1499999...) renders as "0.1". Ties go away from zero.
func oneDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	// 1074 fractional digits print any float64 exactly
	exact, err := decimal.NewFromString(new(big.Float).SetFloat64(v).Text('f', 1074))
	if err != nil {
		return decimal.NewFromFloat(v).StringFixed(1)
	}
	return exact.Round(1).StringFixed(1)
}
