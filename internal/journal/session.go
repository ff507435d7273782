package journal

import (
	"errors"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/log"
	"github.com/chrissnell/foilcast/internal/metrics"
)

// SessionView returns the entry as shown on the session page: when streams
// were saved but never analyzed, a fresh analysis is attached. The stored
// entry is not modified.
func SessionView(e Entry, p foil.Params) Entry {
	if e.FoilAnalysis != nil || e.Streams == nil {
		return e
	}

	result, err := AnalyzeStreams(e.Streams, p)
	if err != nil {
		if !errors.Is(err, foil.ErrMissingStreams) {
			log.Warnw("foil analysis failed", "entry", e.ID, "error", err)
		}
		return e
	}
	e.FoilAnalysis = result
	return e
}

// AnalyzeStreams runs the foil analysis on a bundle and records the outcome.
// A recording without the required streams yields foil.ErrMissingStreams.
func AnalyzeStreams(b *foil.StreamBundle, p foil.Params) (*foil.Result, error) {
	result, err := foil.Analyze(b, p)
	switch {
	case errors.Is(err, foil.ErrMissingStreams):
		metrics.Analyses.WithLabelValues("missing_streams").Inc()
	case err != nil:
		metrics.Analyses.WithLabelValues("invalid").Inc()
	default:
		metrics.Analyses.WithLabelValues("ok").Inc()
		metrics.FlightsDetected.Add(float64(len(result.FoilSegments)))
	}
	return result, err
}
