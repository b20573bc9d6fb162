// Package quorum implements the BFT quorum predicates and round-robin
// proposer selection that gate block production and the meeting protocols.
package quorum

import (
	"sort"

	"github.com/rbbnet/bftsim/internal/model"
)

const consensusQuorumFraction = 2.0 / 3.0

// Included returns the subset of validators currently included in consensus.
func Included(validators []*model.Validator) []*model.Validator {
	out := make([]*model.Validator, 0, len(validators))
	for _, v := range validators {
		if v.Included {
			out = append(out, v)
		}
	}
	return out
}

// SortedByID returns a copy of validators sorted ascending by ID.
func SortedByID(validators []*model.Validator) []*model.Validator {
	out := make([]*model.Validator, len(validators))
	copy(out, validators)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConsensusQuorumMet reports whether more than 2/3 of the included
// validators are Online. An empty included set never meets quorum.
func ConsensusQuorumMet(validators []*model.Validator) bool {
	included := Included(validators)
	if len(included) == 0 {
		return false
	}
	online := 0
	for _, v := range included {
		if v.IsOnline() {
			online++
		}
	}
	return float64(online)/float64(len(included)) > consensusQuorumFraction
}

// NetworkStopped reports whether the network is considered stalled: no
// included validators, or consecutive block-attempt failures have reached
// at least a third of the included set.
func NetworkStopped(validators []*model.Validator, consecutiveFailures int) bool {
	included := Included(validators)
	if len(included) == 0 {
		return true
	}
	return float64(consecutiveFailures) >= float64(len(included))/3.0
}

// ResetQuorumMet reports whether more than 2/3 of included validators are
// both Online and operator-present, the bar for a RESET meeting to succeed.
func ResetQuorumMet(validators []*model.Validator) bool {
	included := Included(validators)
	if len(included) == 0 {
		return false
	}
	count := 0
	for _, v := range included {
		if v.IsOnline() && v.OperatorPresent {
			count++
		}
	}
	return float64(count)/float64(len(included)) > 2.0/3.0
}

// AdjustQuorumMet reports whether more than half of included validators are
// both Online and operator-present, the bar for an ADJUST meeting to act.
func AdjustQuorumMet(validators []*model.Validator) bool {
	included := Included(validators)
	if len(included) == 0 {
		return false
	}
	count := 0
	for _, v := range included {
		if v.IsOnline() && v.OperatorPresent {
			count++
		}
	}
	return float64(count)/float64(len(included)) > 0.5
}

// SelectProposer returns the validator at cursor position in the sorted
// included set, and the cursor value to use next time. The cursor always
// advances by one regardless of whether the selected validator ends up
// proposing successfully.
func SelectProposer(sortedIncluded []*model.Validator, cursor int) (proposer *model.Validator, nextCursor int) {
	n := len(sortedIncluded)
	idx := cursor % n
	proposer = sortedIncluded[idx]
	nextCursor = (cursor + 1) % n
	return proposer, nextCursor
}

// ShouldExcludeValidators implements the eviction-eligibility rule: consortia
// of 4 or fewer included validators never evict; above that, at least 2
// concurrently failing validators are required when the included count is
// 1 mod 3, otherwise 1 is enough.
func ShouldExcludeValidators(validators []*model.Validator) bool {
	included := Included(validators)
	n := len(included)
	if n <= 4 {
		return false
	}
	minFail := 1
	if n%3 == 1 {
		minFail = 2
	}
	failing := 0
	for _, v := range included {
		if v.State == model.Failing {
			failing++
		}
	}
	return failing >= minFail
}

// GoodToExclude reports whether v is a candidate for temporary exclusion:
// it must be Failing and currently Included.
func GoodToExclude(v *model.Validator) bool {
	return v.State == model.Failing && v.Included
}

// OnlineIncludedCount returns the number of validators that are both
// currently Online and currently Included, the exponent in the
// block-registration success probability.
func OnlineIncludedCount(validators []*model.Validator) int {
	count := 0
	for _, v := range validators {
		if v.Included && v.IsOnline() {
			count++
		}
	}
	return count
}

// MinIncludedFloor is the minimum included-validator count an adjust
// meeting's exclusions must never drop below.
const MinIncludedFloor = 4
