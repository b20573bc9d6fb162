package monthly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	"github.com/rbbnet/bftsim/internal/config"
	"github.com/rbbnet/bftsim/internal/randsrc"
	"github.com/rbbnet/bftsim/internal/simulation"
)

func TestAnalyzer_SameMonthIntervalsCounted(t *testing.T) {
	a := NewAnalyzer(5, 1000, config.EfficiencyModeSpan, randsrc.New(1), zap.NewNop())
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: 0, Proposer: 0})
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: 5, Proposer: 1})
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: 10, Proposer: 2})

	reports := a.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, int64(1), reports[0].MonthID)
	// both recorded intervals are 5s
	assert.Equal(t, 5.0, reports[0].Percentile99)
}

func TestAnalyzer_CrossMonthIntervalIgnored(t *testing.T) {
	a := NewAnalyzer(5, 1000, config.EfficiencyModeSpan, randsrc.New(1), zap.NewNop())
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: SecondsPerMonth - 5, Proposer: 0})
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: SecondsPerMonth + 5, Proposer: 1})

	reports := a.Reports()
	require.Len(t, reports, 2)
	// Neither month should have an interval recorded since the only block
	// pair in each bucket is a lone, cross-boundary entry.
	assert.True(t, math.IsNaN(reports[0].Percentile99))
	assert.True(t, math.IsNaN(reports[1].Percentile99))
}

func TestAnalyzer_IndependentSimIDsDoNotCrossPollinate(t *testing.T) {
	a := NewAnalyzer(5, 1000, config.EfficiencyModeSpan, randsrc.New(1), zap.NewNop())
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: 0, Proposer: 0})
	a.Observe(simulation.BlockRecord{SimID: "2", Timestamp: 1000, Proposer: 0})
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: 5, Proposer: 0})

	reports := a.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, 3, countBlocks(a, reports[0].MonthID))
	// only sim "1"'s own 0 -> 5 interval is recorded
	assert.Equal(t, 5.0, reports[0].Percentile99)
}

func countBlocks(a *Analyzer, monthID int64) int {
	return a.buckets[monthID].blocks
}

func TestEfficiency_SpanModeCapsAt100(t *testing.T) {
	a := NewAnalyzer(5, 1000, config.EfficiencyModeSpan, randsrc.New(1), zap.NewNop())
	for i := int64(0); i < 10; i++ {
		a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: i, Proposer: 0})
	}
	reports := a.Reports()
	require.Len(t, reports, 1)
	assert.LessOrEqual(t, reports[0].Efficiency, 100.0)
}

func TestEfficiency_FixedModeUsesFullMonthDenominator(t *testing.T) {
	a := NewAnalyzer(5, 1000, config.EfficiencyModeFixed, randsrc.New(1), zap.NewNop())
	a.Observe(simulation.BlockRecord{SimID: "1", Timestamp: 0, Proposer: 0})
	reports := a.Reports()
	require.Len(t, reports, 1)
	// ideal = SecondsPerMonth/5; 1 block out of that is a small fraction.
	assert.Less(t, reports[0].Efficiency, 1.0)
}
