package batch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rbbnet/bftsim/internal/config"
	"github.com/rbbnet/bftsim/internal/metrics"
	"github.com/rbbnet/bftsim/internal/randsrc"
	"github.com/rbbnet/bftsim/internal/simulation"
)

type recordingBlockSink struct {
	mu   sync.Mutex
	runs [][]simulation.BlockRecord
}

func (r *recordingBlockSink) WriteBlocks(blocks []simulation.BlockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, blocks)
	return nil
}

func TestOrchestrator_RunsIndependentSimulations(t *testing.T) {
	cfg := config.Default()
	cfg.SimulationDurationDays = 1
	cfg.NumValidators = 4

	orch := New(zap.NewNop(), metrics.NewNoop())
	sink := &recordingBlockSink{}

	report, err := orch.Run(context.Background(), cfg, 5, randsrc.New(1), sink, nil)
	require.NoError(t, err)
	assert.Len(t, report.Summaries, 5)
	assert.Len(t, sink.runs, 5)

	for i, s := range report.Summaries {
		assert.Equal(t, i+1, atoiMust(t, s.SimID))
	}
}

func TestOrchestrator_RejectsNonPositiveBatchSize(t *testing.T) {
	orch := New(zap.NewNop(), metrics.NewNoop())
	_, err := orch.Run(context.Background(), config.Default(), 0, randsrc.New(1), nil, nil)
	assert.Error(t, err)
}

func atoiMust(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, c := range s {
		require.True(t, c >= '0' && c <= '9')
		n = n*10 + int(c-'0')
	}
	return n
}
