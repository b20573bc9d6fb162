package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbbnet/bftsim/internal/model"
)

func mustValidators(t *testing.T, n int) []*model.Validator {
	t.Helper()
	out := make([]*model.Validator, n)
	for i := 0; i < n; i++ {
		v, err := model.New(i, 1.0)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func TestConsensusQuorumMet_AllOnline(t *testing.T) {
	vs := mustValidators(t, 4)
	assert.True(t, ConsensusQuorumMet(vs))
}

func TestConsensusQuorumMet_ExactlyTwoThirds_NotMet(t *testing.T) {
	vs := mustValidators(t, 3)
	require.NoError(t, vs[0].Fail(0))
	// 2 of 3 online == exactly 2/3, which must NOT exceed the threshold.
	assert.False(t, ConsensusQuorumMet(vs))
}

func TestConsensusQuorumMet_EmptyIncluded(t *testing.T) {
	vs := mustValidators(t, 2)
	vs[0].Included = false
	vs[1].Included = false
	assert.False(t, ConsensusQuorumMet(vs))
}

func TestNetworkStopped_NoIncluded(t *testing.T) {
	vs := mustValidators(t, 2)
	vs[0].Included = false
	vs[1].Included = false
	assert.True(t, NetworkStopped(vs, 0))
}

func TestNetworkStopped_FailureThreshold(t *testing.T) {
	vs := mustValidators(t, 9)
	assert.False(t, NetworkStopped(vs, 2))
	assert.True(t, NetworkStopped(vs, 3))
}

func TestSelectProposer_AdvancesUnconditionally(t *testing.T) {
	vs := mustValidators(t, 3)
	sorted := SortedByID(vs)

	p0, c1 := SelectProposer(sorted, 0)
	assert.Equal(t, 0, p0.ID)
	assert.Equal(t, 1, c1)

	p1, c2 := SelectProposer(sorted, c1)
	assert.Equal(t, 1, p1.ID)
	assert.Equal(t, 2, c2)

	p2, c3 := SelectProposer(sorted, c2)
	assert.Equal(t, 2, p2.ID)
	assert.Equal(t, 0, c3)
}

func TestShouldExcludeValidators_FloorAtFour(t *testing.T) {
	vs := mustValidators(t, 4)
	for _, v := range vs {
		require.NoError(t, v.Fail(0))
	}
	assert.False(t, ShouldExcludeValidators(vs))
}

func TestShouldExcludeValidators_ModThreshold(t *testing.T) {
	// 7 included, 7 % 3 == 1, so 2 concurrent failures are required.
	vs := mustValidators(t, 7)
	require.NoError(t, vs[0].Fail(0))
	assert.False(t, ShouldExcludeValidators(vs))
	require.NoError(t, vs[1].Fail(0))
	assert.True(t, ShouldExcludeValidators(vs))
}

func TestShouldExcludeValidators_SingleFailureSufficient(t *testing.T) {
	// 8 included, 8 % 3 == 2, so 1 failure is enough.
	vs := mustValidators(t, 8)
	require.NoError(t, vs[0].Fail(0))
	assert.True(t, ShouldExcludeValidators(vs))
}

func TestGoodToExclude(t *testing.T) {
	vs := mustValidators(t, 1)
	assert.False(t, GoodToExclude(vs[0]))
	require.NoError(t, vs[0].Fail(0))
	assert.True(t, GoodToExclude(vs[0]))
	vs[0].Included = false
	assert.False(t, GoodToExclude(vs[0]))
}
