package foil

import (
	"fmt"
	"strings"
)

// Polarity says which direction of altitude change means the board has lifted.
type Polarity int

const (
	// LiftBelowBaseline treats a drop in reported altitude as lift. This matches
	// sensors that measure distance to the water surface.
	LiftBelowBaseline Polarity = iota
	// LiftAboveBaseline treats a rise in reported altitude as lift.
	LiftAboveBaseline
)

func (p Polarity) String() string {
	switch p {
	case LiftBelowBaseline:
		return "below"
	case LiftAboveBaseline:
		return "above"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// ParsePolarity accepts "below" or "above" (case-insensitive). Empty means the default.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "below":
		return LiftBelowBaseline, nil
	case "above":
		return LiftAboveBaseline, nil
	default:
		return 0, fmt.Errorf("unknown lift polarity %q (want \"below\" or \"above\")", s)
	}
}

// Params holds the detection thresholds. All durations are elapsed seconds.
type Params struct {
	// PlaningSpeed is the speed (m/s) a sample must exceed to be a flight candidate.
	PlaningSpeed float64

	// LiftThreshold is how far (m) altitude must move past the baseline.
	LiftThreshold float64

	// Persistence is how long the candidate condition must hold continuously
	// before a flight is registered.
	Persistence float64

	// CalibrationWindow is the leading span averaged to get the baseline altitude.
	CalibrationWindow float64

	// MovingSpeed is the average pair speed (m/s) above which time counts as moving.
	MovingSpeed float64

	// RunGap is the largest break between flights that still counts as the same run.
	RunGap float64

	Polarity Polarity
}

// DefaultParams returns the thresholds tuned for 1 Hz wing-foil recordings.
func DefaultParams() Params {
	return Params{
		PlaningSpeed:      0.8,
		LiftThreshold:     0.2,
		Persistence:       2,
		CalibrationWindow: 10,
		MovingSpeed:       0.5,
		RunGap:            30,
		Polarity:          LiftBelowBaseline,
	}
}

// Validate rejects negative thresholds and unknown polarities.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"planing speed", p.PlaningSpeed},
		{"lift threshold", p.LiftThreshold},
		{"persistence", p.Persistence},
		{"calibration window", p.CalibrationWindow},
		{"moving speed", p.MovingSpeed},
		{"run gap", p.RunGap},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative (got %v)", f.name, f.value)
		}
	}
	if p.Polarity != LiftBelowBaseline && p.Polarity != LiftAboveBaseline {
		return fmt.Errorf("invalid polarity %v", p.Polarity)
	}
	return nil
}

// Lift returns how far alt has moved past baseline in the lift direction.
// Positive values mean the board is higher than at rest.
func (p Params) Lift(alt, baseline float64) float64 {
	if p.Polarity == LiftAboveBaseline {
		return alt - baseline
	}
	return baseline - alt
}

// IsCandidate reports whether a single sample looks like flight.
func (p Params) IsCandidate(speed, alt, baseline float64) bool {
	var lifted bool
	if p.Polarity == LiftAboveBaseline {
		lifted = alt > baseline+p.LiftThreshold
	} else {
		lifted = alt < baseline-p.LiftThreshold
	}
	return speed > p.PlaningSpeed && lifted
}
