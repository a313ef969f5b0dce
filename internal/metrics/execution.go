package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsProcessed tracks completed sandbox executions.
	ExecutionsProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "processed_total",
			Help:      "Total number of sandbox executions processed",
		},
		[]string{"sandbox", "status"}, // script/wasm, success/failure
	)

	// ExecutionDuration tracks end-to-end sandbox run duration.
	ExecutionDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "duration_seconds",
			Help:      "Sandbox execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to 8s
		},
		[]string{"sandbox"},
	)

	// ExecutionOutputSize tracks captured output sizes.
	ExecutionOutputSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "output_size_bytes",
			Help:      "Size of sandbox output captured before encryption",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 9), // 16B to 1MB
		},
		[]string{"sandbox"},
	)
)
