package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chrissnell/foilcast/pkg/lunar"
	"github.com/chrissnell/foilcast/pkg/solar"
)

func main() {
	var (
		timeStr = flag.String("time", "", "Time to report on (RFC3339 format, e.g., 2024-01-15T12:00:00+08:00); default now")
		lat     = flag.Float64("lat", -32.013, "Spot latitude")
		lon     = flag.Float64("lon", 115.829, "Spot longitude")
	)
	flag.Parse()

	t := time.Now()
	if *timeStr != "" {
		var err error
		t, err = time.Parse(time.RFC3339, *timeStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing time: %v\n", err)
			os.Exit(1)
		}
	}

	phase := lunar.Calculate(t)

	fmt.Printf("Conditions for %s at %.3f, %.3f\n", t.Format(time.RFC3339), *lat, *lon)
	if sunrise, sunset, ok := solar.Daylight(t, *lat, *lon); ok {
		fmt.Printf("  Sunrise:      %s\n", sunrise.Format("15:04"))
		fmt.Printf("  Sunset:       %s\n", sunset.Format("15:04"))
	} else {
		fmt.Printf("  Sun:          no sunrise or sunset (polar day or night)\n")
	}
	fmt.Printf("  Moon:         %s, %.1f%% illuminated, %.1f days old\n", phase.PhaseName, phase.Illumination*100, phase.AgeDays)
	fmt.Printf("  Tides:        %s\n", phase.TideRange())
}
