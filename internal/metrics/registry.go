// Package metrics exposes Prometheus collectors for the hypervisor's
// request pipeline: sessions, envelope crypto, sandbox executions and
// attestation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "hypervisor"

// Registry is the process-wide collector registry served at /metrics.
var Registry = prometheus.NewRegistry()
