package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/chrissnell/foilcast/internal/foil"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func main() {
	defaults := foil.DefaultParams()

	var (
		streamsFile = flag.String("streams", "", "Path to a streams JSON file (keyed or array form, required)")
		planing     = flag.Float64("planing-speed", defaults.PlaningSpeed, "Speed (m/s) a sample must exceed to be a flight candidate")
		lift        = flag.Float64("lift-threshold", defaults.LiftThreshold, "Altitude change (m) past the baseline that counts as lift")
		persistence = flag.Float64("persistence", defaults.Persistence, "Seconds the candidate condition must hold")
		calibration = flag.Float64("calibration", defaults.CalibrationWindow, "Leading seconds averaged for the baseline altitude")
		movingSpeed = flag.Float64("moving-speed", defaults.MovingSpeed, "Speed (m/s) above which time counts as moving")
		runGap      = flag.Float64("run-gap", defaults.RunGap, "Largest gap (s) between flights in the same run")
		polarity    = flag.String("polarity", defaults.Polarity.String(), "Which altitude direction means lift: 'below' or 'above' the baseline")
		csvOutput   = flag.String("csv", "", "Optional CSV output file path")
		jsonOutput  = flag.Bool("json", false, "Print the full analysis as JSON instead of a report")
	)
	flag.Parse()

	if *streamsFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -streams <activity-streams.json>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	pol, err := foil.ParsePolarity(*polarity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	p := foil.Params{
		PlaningSpeed:      *planing,
		LiftThreshold:     *lift,
		Persistence:       *persistence,
		CalibrationWindow: *calibration,
		MovingSpeed:       *movingSpeed,
		RunGap:            *runGap,
		Polarity:          pol,
	}

	raw, err := os.ReadFile(*streamsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading streams: %v\n", err)
		os.Exit(1)
	}
	var bundle foil.StreamBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding streams: %v\n", err)
		os.Exit(1)
	}

	result, err := foil.Analyze(&bundle, p)
	if errors.Is(err, foil.ErrMissingStreams) {
		fmt.Fprintf(os.Stderr, "No analysis available: the file needs time, velocity_smooth and altitude streams (found %v)\n", bundle.Types())
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing streams: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
	} else {
		displayReport(result, p)
	}

	if *csvOutput != "" {
		if err := exportCSV(*csvOutput, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		} else {
			fmt.Printf("\nSamples exported to: %s\n", *csvOutput)
		}
	}
}

func displayReport(r *foil.Result, p foil.Params) {
	s := r.Data

	fmt.Printf("Foil Flight Analysis\n")
	fmt.Printf("====================\n\n")
	fmt.Printf("Recording:\n")
	fmt.Printf("  Samples:   %d\n", s.Len())
	fmt.Printf("  Duration:  %.0f s\n", s.Time[len(s.Time)-1]-s.Time[0])
	fmt.Printf("  Speed:     mean %.2f m/s, max %.2f m/s\n", stat.Mean(s.Velocity, nil), floats.Max(s.Velocity))
	fmt.Printf("  Altitude:  %.2f to %.2f m (sd %.2f)\n", floats.Min(s.Altitude), floats.Max(s.Altitude), stat.StdDev(s.Altitude, nil))
	fmt.Printf("  Baseline:  %.2f m (first %.0f s)\n\n", r.BaselineAltitude, p.CalibrationWindow)

	fmt.Printf("Thresholds: planing %.2f m/s, lift %.2f m %s baseline, hold %.0f s\n\n",
		p.PlaningSpeed, p.LiftThreshold, p.Polarity, p.Persistence)

	fmt.Printf("Stats:\n")
	fmt.Printf("  Total foil time: %s min\n", r.Stats.TotalFoilTime)
	fmt.Printf("  Flights:         %d\n", r.Stats.NumberOfFlights)
	fmt.Printf("  Runs:            %d\n", r.Stats.TotalRuns)
	fmt.Printf("  Foiling:         %s%% of moving time\n\n", r.Stats.PercentFoil)

	details := foil.DescribeSegments(s, r.FoilSegments, r.BaselineAltitude, p)
	if len(details) == 0 {
		fmt.Println("No flights detected.")
		return
	}

	fmt.Printf("%-4s %10s %10s %9s %10s %10s %9s\n", "#", "start(s)", "end(s)", "dur(s)", "max(m/s)", "mean(m/s)", "lift(m)")
	for i, d := range details {
		fmt.Printf("%-4d %10.0f %10.0f %9.0f %10.2f %10.2f %9.2f\n",
			i+1, d.StartTime, d.EndTime, d.Duration, d.MaxSpeed, d.MeanSpeed, d.PeakLift)
	}
}

func exportCSV(filename string, r *foil.Result) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"time", "velocity", "altitude", "on_foil"}); err != nil {
		return err
	}

	onFoil := make([]bool, r.Data.Len())
	for _, seg := range r.FoilSegments {
		for i := seg.Start; i <= seg.End; i++ {
			onFoil[i] = true
		}
	}

	for i := range r.Data.Time {
		record := []string{
			strconv.FormatFloat(r.Data.Time[i], 'f', -1, 64),
			strconv.FormatFloat(r.Data.Velocity[i], 'f', 3, 64),
			strconv.FormatFloat(r.Data.Altitude[i], 'f', 2, 64),
			strconv.FormatBool(onFoil[i]),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}
