// Package simulation drives a single event-driven availability simulation:
// it owns the event queue, the validator set, and the quorum/meeting
// predicates, and emits the chronological block stream they produce.
package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rbbnet/bftsim/internal/config"
	"github.com/rbbnet/bftsim/internal/eventqueue"
	"github.com/rbbnet/bftsim/internal/meeting"
	"github.com/rbbnet/bftsim/internal/metrics"
	"github.com/rbbnet/bftsim/internal/model"
	"github.com/rbbnet/bftsim/internal/quorum"
	"github.com/rbbnet/bftsim/internal/randsrc"
	"github.com/rbbnet/bftsim/internal/simerrors"
)

// BlockRecord is one block produced during a run, in emission order.
type BlockRecord struct {
	SimID     string
	Timestamp int64
	Proposer  int
}

// FailureRecord is one validator failure observed during a run, feeding the
// failure-distribution sub-report.
type FailureRecord struct {
	ValidatorID int
	Timestamp   int64
	Duration    int64
}

// Result is everything a completed run produced, feeding the aggregator and
// the block-stream writer.
type Result struct {
	RunID          uuid.UUID
	Blocks         []BlockRecord
	Failures       []FailureRecord
	ProposalsCount map[int]int
	NumValidators  int
}

// failKind distinguishes the two sampled failure-duration distributions.
type failKind int

const (
	failShort failKind = iota
	failLong
)

type failPayload struct {
	validatorID int
	kind        failKind
}

// Driver owns one simulation run's state and runs its event loop to
// completion or cancellation.
type Driver struct {
	simID   string
	cfg     config.Config
	rnd     *randsrc.Source
	logger  *zap.Logger
	metrics *metrics.Registry

	runID      uuid.UUID
	validators []*model.Validator
	queue      *eventqueue.Queue

	cursor              int
	consecutiveFailures int
	nextBlockTime       int64
	blocksSinceAdjust    int
	progressStep        int64

	blocks         []BlockRecord
	failures       []FailureRecord
	proposalsCount map[int]int
}

// New constructs a Driver for simID using cfg and rnd. rnd should be a
// private Source (e.g. derived via randsrc.Source.Sub) so that parallel runs
// never share PRNG state. reg may be metrics.NewNoop().
func New(simID string, cfg config.Config, rnd *randsrc.Source, logger *zap.Logger, reg *metrics.Registry) (*Driver, error) {
	if cfg.NumValidators <= 0 {
		return nil, fmt.Errorf("%w: num_validators must be positive", simerrors.ErrInvalidConfig)
	}
	validators := make([]*model.Validator, cfg.NumValidators)
	proposals := make(map[int]int, cfg.NumValidators)
	for i := 0; i < cfg.NumValidators; i++ {
		v, err := model.New(i, 1-cfg.POperatorAbsence)
		if err != nil {
			return nil, fmt.Errorf("%w: constructing validator %d: %v", simerrors.ErrInvalidConfig, i, err)
		}
		validators[i] = v
		proposals[i] = 0
	}
	return &Driver{
		simID:          simID,
		cfg:            cfg,
		rnd:            rnd,
		logger:         logger.Named("simulation_driver").With(zap.String("sim_id", simID)),
		metrics:        reg,
		runID:          uuid.New(),
		validators:     validators,
		queue:          eventqueue.New(),
		proposalsCount: proposals,
	}, nil
}

// Run executes the event loop until the configured duration elapses or ctx
// is cancelled, returning the block stream and proposer counts it produced.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	duration := d.cfg.SimulationDurationSeconds()

	d.progressStep = duration / 100
	if d.progressStep < 1 {
		d.progressStep = 1
	}

	for _, v := range d.validators {
		d.scheduleNextFailure(v, 0)
	}
	d.queue.Schedule(d.cfg.ResetIntervalSeconds(), eventqueue.MeetingReset, nil)
	if d.cfg.AdjustProcedureIntervalInBlocks <= 0 {
		d.queue.Schedule(d.adjustInterval(), eventqueue.MeetingAdjust, nil)
	}
	d.queue.Schedule(0, eventqueue.BlockAttempt, nil)
	d.queue.Schedule(d.progressStep, eventqueue.Progress, nil)

	var clock int64
	for {
		select {
		case <-ctx.Done():
			return d.result(), ctx.Err()
		default:
		}

		ev, ok := d.queue.Pop()
		if !ok {
			break
		}
		if ev.When > duration {
			break
		}
		if ev.When < clock {
			return Result{}, fmt.Errorf("%w: event time %d (kind %d) precedes clock %d", simerrors.ErrInvariantViolation, ev.When, ev.Kind, clock)
		}
		clock = ev.When

		switch ev.Kind {
		case eventqueue.ValidatorFail:
			if err := d.handleFail(ev); err != nil {
				return Result{}, err
			}
		case eventqueue.ValidatorRecover:
			if err := d.handleRecover(ev); err != nil {
				return Result{}, err
			}
		case eventqueue.BlockAttempt:
			stop, err := d.handleBlockAttempt(ev)
			if err != nil {
				return Result{}, err
			}
			if stop {
				return d.result(), nil
			}
		case eventqueue.MeetingReset:
			d.handleReset(ev.When)
			d.queue.Schedule(ev.When+d.cfg.ResetIntervalSeconds(), eventqueue.MeetingReset, nil)
		case eventqueue.MeetingAdjust:
			d.handleAdjust(ev.When, false)
			d.queue.Schedule(ev.When+d.adjustInterval(), eventqueue.MeetingAdjust, nil)
		case eventqueue.Progress:
			d.logger.Info("progress", zap.Int64("t", ev.When), zap.Int64("duration", duration))
			d.queue.Schedule(ev.When+d.progressStep, eventqueue.Progress, nil)
		}
	}
	return d.result(), nil
}

func (d *Driver) adjustInterval() int64 {
	return d.cfg.AdjustIntervalSeconds()
}

func (d *Driver) result() Result {
	return Result{
		RunID:          d.runID,
		Blocks:         d.blocks,
		Failures:       d.failures,
		ProposalsCount: d.proposalsCount,
		NumValidators:  len(d.validators),
	}
}

func (d *Driver) scheduleNextFailure(v *model.Validator, now int64) {
	delay := d.rnd.Exponential(d.cfg.LambdaTotalFail())
	when := now + int64(delay)
	kind := failShort
	if d.rnd.Float64() >= d.cfg.LambdaFailShort()/d.cfg.LambdaTotalFail() {
		kind = failLong
	}
	d.queue.Schedule(when, eventqueue.ValidatorFail, failPayload{validatorID: v.ID, kind: kind})
}

func (d *Driver) handleFail(ev eventqueue.Event) error {
	p := ev.Payload.(failPayload)
	v := d.validators[p.validatorID]
	if !v.IsOnline() {
		return nil // stale event: validator already failing
	}
	if err := v.Fail(ev.When); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrInvariantViolation, err)
	}
	mean := d.cfg.MeanShortOfflineSeconds()
	if p.kind == failLong {
		mean = d.cfg.MeanLongOfflineSeconds()
	}
	offlineDur := d.rnd.Exponential(1.0 / mean)
	d.failures = append(d.failures, FailureRecord{ValidatorID: v.ID, Timestamp: ev.When, Duration: int64(offlineDur)})
	d.queue.Schedule(ev.When+int64(offlineDur), eventqueue.ValidatorRecover, p.validatorID)
	return nil
}

func (d *Driver) handleRecover(ev eventqueue.Event) error {
	vid := ev.Payload.(int)
	v := d.validators[vid]
	if v.State != model.Failing {
		return nil // stale event
	}
	if err := v.Recover(ev.When); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrInvariantViolation, err)
	}
	d.scheduleNextFailure(v, ev.When)
	return nil
}

func (d *Driver) handleBlockAttempt(ev eventqueue.Event) (stop bool, err error) {
	if ev.When != d.nextBlockTime {
		return false, nil // stale event
	}
	included := quorum.SortedByID(quorum.Included(d.validators))
	if len(included) == 0 {
		d.logger.Warn("no validators included, stopping simulation", zap.Int64("t", ev.When))
		return true, nil
	}

	proposer, nextCursor := quorum.SelectProposer(included, d.cursor)
	if quorum.ConsensusQuorumMet(d.validators) && proposer.IsOnline() {
		d.blocks = append(d.blocks, BlockRecord{SimID: d.simID, Timestamp: ev.When, Proposer: proposer.ID})
		proposer.RecordProposal(ev.When)
		d.proposalsCount[proposer.ID]++
		d.consecutiveFailures = 0
		d.nextBlockTime = ev.When + int64(d.cfg.BlockTime)
		if d.cfg.AdjustProcedureIntervalInBlocks > 0 && d.registrationSucceeds() {
			d.blocksSinceAdjust++
		}
	} else {
		d.consecutiveFailures++
		penalty := (1 << (d.consecutiveFailures - 1)) * int64(d.cfg.RequestTimeout)
		d.nextBlockTime = ev.When + penalty
	}
	d.cursor = nextCursor
	d.queue.Schedule(d.nextBlockTime, eventqueue.BlockAttempt, nil)

	if d.cfg.AdjustProcedureIntervalInBlocks > 0 && d.blocksSinceAdjust >= d.cfg.AdjustProcedureIntervalInBlocks {
		d.blocksSinceAdjust = 0
		d.handleAdjust(ev.When, true)
	}
	return false, nil
}

// registrationSucceeds samples the block-triggered adjust variant's
// registration outcome: every online-included validator must independently
// fail to register, with per-validator probability cfg.PRegisterFail, for the
// whole registration to fail.
func (d *Driver) registrationSucceeds() bool {
	k := quorum.OnlineIncludedCount(d.validators)
	failProb := math.Pow(d.cfg.PRegisterFail, float64(k))
	return d.rnd.Bool(1 - failProb)
}

func (d *Driver) handleReset(t int64) {
	outcome := meeting.Reset(d.validators, d.consecutiveFailures, t, int64(d.cfg.BlockTime), d.rnd)
	if outcome.Attempted && outcome.QuorumMet {
		d.consecutiveFailures = 0
		d.nextBlockTime = outcome.NextBlockTime
		d.queue.Schedule(d.nextBlockTime, eventqueue.BlockAttempt, nil)
	}
}

func (d *Driver) handleAdjust(t int64, windowBased bool) {
	var outcome meeting.AdjustOutcome
	if windowBased {
		outcome = meeting.AdjustWindowBased(d.validators, d.consecutiveFailures, d.rnd)
	} else {
		outcome = meeting.Adjust(d.validators, d.consecutiveFailures, d.rnd)
	}
	if outcome.Ran && len(outcome.Excluded) > 0 {
		d.logger.Debug("excluded validators", zap.Int64("t", t), zap.Ints("ids", outcome.Excluded))
		d.metrics.ValidatorExclusionsTotal.Add(float64(len(outcome.Excluded)))
	}
	if outcome.Ran && len(outcome.Included) > 0 {
		d.logger.Debug("included validators", zap.Int64("t", t), zap.Ints("ids", outcome.Included))
	}
}
