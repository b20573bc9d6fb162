// Package meeting implements the periodic RESET and ADJUST protocols that
// recover a stalled network and evict or readmit chronically failing
// validators.
package meeting

import (
	"github.com/rbbnet/bftsim/internal/model"
	"github.com/rbbnet/bftsim/internal/quorum"
	"github.com/rbbnet/bftsim/internal/randsrc"
)

// ResamplePresence re-rolls each validator's operator-present flag against
// its own operator-reliability probability, as happens at the start of
// every meeting.
func ResamplePresence(validators []*model.Validator, rnd *randsrc.Source) {
	for _, v := range validators {
		v.OperatorPresent = rnd.Bool(v.OperatorReliability)
	}
}

// ResetOutcome is the result of running a RESET meeting.
type ResetOutcome struct {
	Attempted          bool
	QuorumMet          bool
	ConsecutiveFailures int
	NextBlockTime      int64
}

// Reset runs a RESET meeting at time t. It only acts if the network looks
// stalled (quorum.NetworkStopped); if it acts and quorum is met, the
// consecutive-failure counter is cleared and block production resumes
// blockTime seconds later.
func Reset(validators []*model.Validator, consecutiveFailures int, t, blockTime int64, rnd *randsrc.Source) ResetOutcome {
	if !quorum.NetworkStopped(validators, consecutiveFailures) {
		return ResetOutcome{Attempted: false, ConsecutiveFailures: consecutiveFailures}
	}
	ResamplePresence(validators, rnd)
	if !quorum.ResetQuorumMet(validators) {
		return ResetOutcome{Attempted: true, QuorumMet: false, ConsecutiveFailures: consecutiveFailures}
	}
	return ResetOutcome{
		Attempted:           true,
		QuorumMet:           true,
		ConsecutiveFailures: 0,
		NextBlockTime:       t + blockTime,
	}
}

// AdjustOutcome is the result of running an ADJUST meeting.
type AdjustOutcome struct {
	Ran      bool
	Excluded []int
	Included []int
}

// Adjust runs an ADJUST meeting at time t: it resamples presence, and if the
// network is not stalled and adjust quorum holds, evicts chronically-failing
// validators (per quorum.ShouldExcludeValidators) and readmits any excluded
// validator that has recovered to Online. Exclusions never drop the included
// count below quorum.MinIncludedFloor.
func Adjust(validators []*model.Validator, consecutiveFailures int, rnd *randsrc.Source) AdjustOutcome {
	ResamplePresence(validators, rnd)
	if quorum.NetworkStopped(validators, consecutiveFailures) || !quorum.AdjustQuorumMet(validators) {
		return AdjustOutcome{Ran: false}
	}

	var candidates []*model.Validator
	if quorum.ShouldExcludeValidators(validators) {
		for _, v := range validators {
			if quorum.GoodToExclude(v) {
				candidates = append(candidates, v)
			}
		}
	}
	toExclude := capExclusions(validators, candidates)

	var toInclude []*model.Validator
	for _, v := range validators {
		if !v.Included && v.IsOnline() {
			toInclude = append(toInclude, v)
		}
	}

	out := AdjustOutcome{Ran: true}
	for _, v := range toExclude {
		v.Included = false
		out.Excluded = append(out.Excluded, v.ID)
	}
	for _, v := range toInclude {
		v.Included = true
		out.Included = append(out.Included, v.ID)
	}
	return out
}

// AdjustWindowBased runs the block-triggered ADJUST variant: instead of
// evicting FAILING validators, it evicts included validators that did not
// propose a block during the just-completed window, subject to the same
// quorum.MinIncludedFloor proviso. Excluded ONLINE validators are readmitted
// and every validator's window flag is cleared before returning, regardless
// of whether the meeting ran.
func AdjustWindowBased(validators []*model.Validator, consecutiveFailures int, rnd *randsrc.Source) AdjustOutcome {
	ResamplePresence(validators, rnd)
	defer clearWindows(validators)

	if quorum.NetworkStopped(validators, consecutiveFailures) || !quorum.AdjustQuorumMet(validators) {
		return AdjustOutcome{Ran: false}
	}

	var candidates []*model.Validator
	for _, v := range validators {
		if v.Included && !v.HasProposedInWindow() {
			candidates = append(candidates, v)
		}
	}
	toExclude := capExclusions(validators, candidates)

	var toInclude []*model.Validator
	for _, v := range validators {
		if !v.Included && v.IsOnline() {
			toInclude = append(toInclude, v)
		}
	}

	out := AdjustOutcome{Ran: true}
	for _, v := range toExclude {
		v.Included = false
		out.Excluded = append(out.Excluded, v.ID)
	}
	for _, v := range toInclude {
		v.Included = true
		out.Included = append(out.Included, v.ID)
	}
	return out
}

// capExclusions truncates candidates (in their given order) so that applying
// them never drops the included count below quorum.MinIncludedFloor.
func capExclusions(validators []*model.Validator, candidates []*model.Validator) []*model.Validator {
	excludable := len(quorum.Included(validators)) - quorum.MinIncludedFloor
	if excludable <= 0 {
		return nil
	}
	if len(candidates) > excludable {
		return candidates[:excludable]
	}
	return candidates
}

func clearWindows(validators []*model.Validator) {
	for _, v := range validators {
		v.ResetWindow()
	}
}
