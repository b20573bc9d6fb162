package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rbbnet/bftsim/internal/simulation"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("1", nil, map[int]int{}, 3)
	assert.Equal(t, 0, s.TotalBlocks)
	assert.Equal(t, 0.0, s.AverageBlocksProduced)
}

func TestSummarize_IntervalHistogram(t *testing.T) {
	blocks := []simulation.BlockRecord{
		{SimID: "1", Timestamp: 0, Proposer: 0},
		{SimID: "1", Timestamp: 5, Proposer: 1},
		{SimID: "1", Timestamp: 10, Proposer: 2},
		{SimID: "1", Timestamp: 20, Proposer: 0},
	}
	proposals := map[int]int{0: 2, 1: 1, 2: 1}
	s := Summarize("1", blocks, proposals, 3)

	assert.Equal(t, 4, s.TotalBlocks)
	assert.Equal(t, 2, s.IntervalCounts[5])
	assert.Equal(t, 1, s.IntervalCounts[10])
}

func TestSummarize_FairnessStats(t *testing.T) {
	blocks := make([]simulation.BlockRecord, 10)
	proposals := map[int]int{0: 5, 1: 3, 2: 2}
	for i := range blocks {
		blocks[i] = simulation.BlockRecord{SimID: "1", Timestamp: int64(i), Proposer: i % 3}
	}
	s := Summarize("1", blocks, proposals, 3)

	assert.Equal(t, 10, s.TotalBlocks)
	assert.InDelta(t, 10.0/3.0, s.AverageBlocksProduced, 1e-9)
	assert.Equal(t, 2, s.MinimumBlocksProduced)
	assert.InDelta(t, 20.0, s.MinimumBlocksPercentage, 1e-9)
}
