// Package batch runs M independent simulations concurrently and assembles
// their aggregated per-simulation report. Each run owns a private PRNG
// stream, event queue, and validator set; no mutable state is shared between
// runs except the serialized report sinks.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rbbnet/bftsim/internal/aggregate"
	"github.com/rbbnet/bftsim/internal/config"
	"github.com/rbbnet/bftsim/internal/metrics"
	"github.com/rbbnet/bftsim/internal/randsrc"
	"github.com/rbbnet/bftsim/internal/simerrors"
	"github.com/rbbnet/bftsim/internal/simulation"
)

// BlockSink receives one run's block stream as soon as the run completes.
// Implementations must be safe for concurrent calls.
type BlockSink interface {
	WriteBlocks(blocks []simulation.BlockRecord) error
}

// FailureSink receives one run's failure records as soon as the run
// completes. Implementations must be safe for concurrent calls.
type FailureSink interface {
	WriteFailures(simID string, failures []simulation.FailureRecord) error
}

// Report is the full result of a batch: one Summary per run, in sim_id
// order.
type Report struct {
	Summaries []aggregate.Summary
}

// Orchestrator runs a batch of simulations in parallel.
type Orchestrator struct {
	logger  *zap.Logger
	metrics *metrics.Registry
}

// New constructs an Orchestrator. metrics may be metrics.NewNoop().
func New(logger *zap.Logger, m *metrics.Registry) *Orchestrator {
	return &Orchestrator{logger: logger.Named("batch_orchestrator"), metrics: m}
}

// Run executes m independent simulations using cfg, deriving each run's
// PRNG stream from base via Sub(i). At most cfg.MaxParallelRuns runs (or
// runtime.GOMAXPROCS(0) when that is 0) execute at once. blocks and
// failures, if non-nil, receive each run's stream as that run completes,
// one run at a time under the orchestrator's mutex and before the run's
// goroutine returns; the run's Summary is stored under the same mutex, and
// the Report is returned once every run has completed.
func (o *Orchestrator) Run(ctx context.Context, cfg config.Config, m int, base *randsrc.Source, blocks BlockSink, failures FailureSink) (Report, error) {
	if m <= 0 {
		return Report{}, fmt.Errorf("batch size must be positive, got %d", m)
	}
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	var mu sync.Mutex
	summaries := make([]aggregate.Summary, m)

	// *randsrc.Source is not safe for concurrent use, so every child stream
	// is derived here, sequentially, before any goroutine starts — letting
	// goroutines each call base.Sub(i) themselves would race on base's
	// shared *rand.Rand and break the same-seed determinism guarantee.
	rnds := make([]*randsrc.Source, m)
	for i := 0; i < m; i++ {
		rnds[i] = base.Sub(i)
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := cfg.MaxParallelRuns
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i := 0; i < m; i++ {
		i := i
		g.Go(func() error {
			simID := strconv.Itoa(i + 1)
			rnd := rnds[i]

			driver, err := simulation.New(simID, cfg, rnd, o.logger, o.metrics)
			if err != nil {
				return fmt.Errorf("sim %s: %w", simID, err)
			}
			start := time.Now()
			result, err := driver.Run(gctx)
			o.metrics.SimulationDurationSeconds.Observe(time.Since(start).Seconds())
			if err != nil {
				if errors.Is(err, simerrors.ErrInvariantViolation) {
					o.metrics.InvariantViolationsTotal.Inc()
				}
				return fmt.Errorf("sim %s: %w", simID, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if blocks != nil {
				if err := blocks.WriteBlocks(result.Blocks); err != nil {
					return fmt.Errorf("sim %s: writing blocks: %w", simID, err)
				}
			}
			if failures != nil {
				if err := failures.WriteFailures(simID, result.Failures); err != nil {
					return fmt.Errorf("sim %s: writing failures: %w", simID, err)
				}
			}
			summaries[i] = aggregate.Summarize(simID, result.Blocks, result.ProposalsCount, result.NumValidators)
			o.metrics.SimulationsTotal.Inc()
			o.metrics.BlocksTotal.Add(float64(len(result.Blocks)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return Report{Summaries: summaries}, nil
}
