package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesIssued tracks attestation quotes generated over a commitment.
	QuotesIssued = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attestation",
			Name:      "quotes_issued_total",
			Help:      "Total number of attestation quotes issued",
		},
		[]string{"provider"}, // mock, sevsnp
	)

	// QuoteFailures tracks attestation quote failures by provider.
	QuoteFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attestation",
			Name:      "quote_failures_total",
			Help:      "Total number of attestation quote failures",
		},
		[]string{"provider"},
	)

	// QuoteDuration tracks how long quote generation takes.
	QuoteDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attestation",
			Name:      "quote_duration_seconds",
			Help:      "Attestation quote generation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
		[]string{"provider"},
	)
)
