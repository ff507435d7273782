package foil

import (
	"gonum.org/v1/gonum/stat"
)

// Segment is an inclusive [Start, End] index range during which the rider was on foil.
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Baseline returns the resting altitude: the mean of every sample taken within
// window seconds of the first one. Falls back to the first altitude when
// nothing qualifies.
func Baseline(times, alts []float64, window float64) float64 {
	if len(times) == 0 || len(alts) == 0 {
		return 0
	}

	n := 0
	for n < len(times) && n < len(alts) && times[n]-times[0] <= window {
		n++
	}
	if n == 0 {
		return alts[0]
	}

	return stat.Mean(alts[:n], nil)
}

// DetectSegments scans the samples once and returns the flights, ordered by
// start index. A flight opens at the index where the candidate condition began,
// but only after it has held for p.Persistence seconds; any non-candidate
// sample closes an open flight and restarts the persistence timer.
func DetectSegments(s Streams, baseline float64, p Params) []Segment {
	segments := []Segment{}

	potentialStart := -1
	var current *Segment

	for i := 0; i < s.Len(); i++ {
		if !p.IsCandidate(s.Velocity[i], s.Altitude[i], baseline) {
			if current != nil {
				segments = append(segments, *current)
				current = nil
			}
			potentialStart = -1
			continue
		}

		if potentialStart == -1 {
			potentialStart = i
		}

		if s.Time[i]-s.Time[potentialStart] < p.Persistence {
			continue
		}

		if current == nil {
			current = &Segment{Start: potentialStart, End: i}
		} else {
			current.End = i
		}
	}

	// Recording ended mid-flight
	if current != nil {
		segments = append(segments, *current)
	}

	return segments
}
