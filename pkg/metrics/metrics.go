// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllowListLookups counts allow-list reads by outcome (hit, miss, error).
	AllowListLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcpx",
		Subsystem: "allowlist",
		Name:      "lookups_total",
		Help:      "Allow-list cache reads by outcome.",
	}, []string{"outcome"})

	// AllowListSize is the number of distinct origins in the current cache entry.
	AllowListSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mcpx",
		Subsystem: "allowlist",
		Name:      "origins",
		Help:      "Distinct origins in the cached allow-list.",
	})

	// CORSDecisions counts CORS middleware outcomes (allowed, denied, error).
	CORSDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcpx",
		Subsystem: "cors",
		Name:      "decisions_total",
		Help:      "Cross-origin header decisions.",
	}, []string{"decision"})

	// StreamsActive tracks open keepalive streams.
	StreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mcpx",
		Subsystem: "sse",
		Name:      "streams_active",
		Help:      "Open keepalive event streams.",
	})

	// AuthFailures counts rejected requests by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcpx",
		Subsystem: "auth",
		Name:      "failures_total",
		Help:      "Requests rejected by bearer authentication or scope policy.",
	}, []string{"reason"})
)
