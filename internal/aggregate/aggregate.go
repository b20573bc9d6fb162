// Package aggregate summarizes one completed simulation run's block stream
// into the interval histogram and proposer-fairness statistics carried in
// the aggregated per-simulation report.
package aggregate

import "github.com/rbbnet/bftsim/internal/simulation"

// Summary is the derived statistics for one simulation run.
type Summary struct {
	SimID                    string
	IntervalCounts           map[int64]int
	TotalBlocks              int
	AverageBlocksProduced    float64
	AverageBlocksPercentage  float64
	MinimumBlocksProduced    int
	MinimumBlocksPercentage  float64
}

// Summarize computes a Summary from a run's emitted blocks and proposer
// counts, given the number of validators configured for the run.
func Summarize(simID string, blocks []simulation.BlockRecord, proposalsCount map[int]int, numValidators int) Summary {
	s := Summary{SimID: simID, IntervalCounts: map[int64]int{}}

	if len(blocks) > 1 {
		for i := 1; i < len(blocks); i++ {
			iv := blocks[i].Timestamp - blocks[i-1].Timestamp
			s.IntervalCounts[iv]++
		}
	}

	total := len(blocks)
	s.TotalBlocks = total
	if total == 0 || numValidators == 0 {
		return s
	}

	s.AverageBlocksProduced = float64(total) / float64(numValidators)

	var pctSum float64
	minProduced := -1
	minPct := 0.0
	for _, id := range sortedKeys(proposalsCount) {
		count := proposalsCount[id]
		pct := float64(count) * 100 / float64(total)
		pctSum += pct
		if minProduced == -1 || count < minProduced {
			minProduced = count
			minPct = pct
		}
	}
	s.AverageBlocksPercentage = pctSum / float64(numValidators)
	if minProduced == -1 {
		minProduced = 0
	}
	s.MinimumBlocksProduced = minProduced
	s.MinimumBlocksPercentage = minPct
	return s
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// small N (validator count); insertion sort keeps this dependency-free
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
