// Package metrics exposes process-wide Prometheus counters and histograms
// for observing a batch run in progress.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds the counters and histograms the batch orchestrator and
// simulation driver update as they run.
type Registry struct {
	reg *prometheus.Registry

	SimulationsTotal          prometheus.Counter
	BlocksTotal               prometheus.Counter
	InvariantViolationsTotal  prometheus.Counter
	ValidatorExclusionsTotal  prometheus.Counter
	SimulationDurationSeconds prometheus.Histogram
}

// New constructs a Registry backed by a fresh prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		SimulationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bftsim_simulations_total",
			Help: "Total number of completed simulation runs.",
		}),
		BlocksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bftsim_blocks_total",
			Help: "Total number of blocks produced across all runs.",
		}),
		InvariantViolationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bftsim_invariant_violations_total",
			Help: "Total number of runs aborted due to an invariant violation.",
		}),
		ValidatorExclusionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bftsim_validator_exclusions_total",
			Help: "Total number of validator exclusions across all adjust meetings.",
		}),
		SimulationDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bftsim_simulation_duration_seconds",
			Help:    "Wall-clock duration of a single simulation run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		r.SimulationsTotal,
		r.BlocksTotal,
		r.InvariantViolationsTotal,
		r.ValidatorExclusionsTotal,
		r.SimulationDurationSeconds,
	)
	return r
}

// NewNoop returns a Registry whose metrics are registered but never
// exported via a handler — the default for single-shot `run` invocations.
func NewNoop() *Registry { return New() }

// Gatherer exposes the underlying registry for wiring into an HTTP handler.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
