// Package foil detects on-foil flights in recorded wind-foil outings.
//
// The input is three index-aligned series sampled by the activity tracker:
// elapsed seconds, GPS speed and barometric altitude. A sample is a flight
// candidate when the rider is above planing speed and the altitude has moved
// past the resting baseline by a margin. A flight is registered once that has
// held continuously for a persistence period.
//
// Everything in this package is a pure function of its inputs and is safe to
// call from many goroutines at once.
package foil

import (
	"fmt"
)

// Result is the outcome of analysing one recording.
type Result struct {
	BaselineAltitude float64   `json:"baselineAltitude"`
	FoilSegments     []Segment `json:"foilSegments"`
	Stats            Stats     `json:"stats"`
	Data             Streams   `json:"data"`
}

// Analyze normalizes a raw bundle and runs the detector. It returns
// ErrMissingStreams when the recording lacks one of the required series;
// callers should treat that as "no analysis available" and fall back to the
// activity's coarse statistics.
func Analyze(b *StreamBundle, p Params) (*Result, error) {
	s, err := Normalize(b)
	if err != nil {
		return nil, err
	}
	return AnalyzeStreams(s, p)
}

// AnalyzeStreams runs calibration, detection and statistics over canonical streams.
func AnalyzeStreams(s Streams, p Params) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis parameters: %w", err)
	}

	baseline := Baseline(s.Time, s.Altitude, p.CalibrationWindow)
	segments := DetectSegments(s, baseline, p)

	return &Result{
		BaselineAltitude: baseline,
		FoilSegments:     segments,
		Stats:            ComputeStats(s, segments, p),
		Data: Streams{
			Velocity: append([]float64(nil), s.Velocity...),
			Altitude: append([]float64(nil), s.Altitude...),
			Time:     append([]float64(nil), s.Time...),
		},
	}, nil
}
