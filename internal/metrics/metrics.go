// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analyses counts foil analyses by outcome: ok, missing_streams, invalid.
	Analyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foilcast_analyses_total",
			Help: "Foil analyses run, by outcome",
		},
		[]string{"outcome"},
	)

	FlightsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foilcast_flights_detected_total",
			Help: "Foil flights detected across all analyses",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foilcast_external_api_request_duration_seconds",
			Help:    "Latency of calls to third-party APIs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "foilcast_circuit_breaker_state",
			Help: "Circuit breaker state per external service",
		},
		[]string{"service"},
	)

	SyncedActivities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foilcast_synced_activities_total",
			Help: "Activities imported by the background sync, by result",
		},
		[]string{"result"},
	)
)
