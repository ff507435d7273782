package foil

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SegmentDetail describes a single flight for the chart overlay.
type SegmentDetail struct {
	Segment
	StartTime float64 `json:"startTime"` // elapsed seconds
	EndTime   float64 `json:"endTime"`
	Duration  float64 `json:"duration"`
	MaxSpeed  float64 `json:"maxSpeed"`  // m/s
	MeanSpeed float64 `json:"meanSpeed"` // m/s
	PeakLift  float64 `json:"peakLift"`  // meters past baseline
}

// DescribeSegments summarises each flight. Segments must index into s.
func DescribeSegments(s Streams, segments []Segment, baseline float64, p Params) []SegmentDetail {
	details := make([]SegmentDetail, 0, len(segments))

	for _, seg := range segments {
		speeds := s.Velocity[seg.Start : seg.End+1]

		lift := make([]float64, 0, len(speeds))
		for _, alt := range s.Altitude[seg.Start : seg.End+1] {
			lift = append(lift, p.Lift(alt, baseline))
		}

		details = append(details, SegmentDetail{
			Segment:   seg,
			StartTime: s.Time[seg.Start],
			EndTime:   s.Time[seg.End],
			Duration:  s.Time[seg.End] - s.Time[seg.Start],
			MaxSpeed:  floats.Max(speeds),
			MeanSpeed: stat.Mean(speeds, nil),
			PeakLift:  floats.Max(lift),
		})
	}

	return details
}
