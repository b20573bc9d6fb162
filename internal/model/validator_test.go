package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v, err := New(3, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 3, v.ID)
	assert.True(t, v.Included)
	assert.Equal(t, Online, v.State)
	assert.Equal(t, 0.9, v.OperatorReliability)
}

func TestNew_InvalidID(t *testing.T) {
	_, err := New(-1, 0.9)
	assert.ErrorIs(t, err, ErrInvalidValidatorID)
}

func TestNew_InvalidReliability(t *testing.T) {
	_, err := New(0, 1.5)
	assert.ErrorIs(t, err, ErrInvalidReliability)
}

func TestFailThenRecover(t *testing.T) {
	v, err := New(1, 1.0)
	require.NoError(t, err)

	require.NoError(t, v.Fail(100))
	assert.Equal(t, Failing, v.State)

	require.NoError(t, v.Recover(150))
	assert.Equal(t, Online, v.State)
	require.Len(t, v.OfflineIntervals, 1)
	assert.Equal(t, Interval{Start: 100, End: 150}, v.OfflineIntervals[0])
}

func TestFail_RequiresOnline(t *testing.T) {
	v, err := New(1, 1.0)
	require.NoError(t, err)
	require.NoError(t, v.Fail(10))

	err = v.Fail(20)
	assert.ErrorIs(t, err, ErrValidatorNotOnline)
}

func TestRecover_RequiresFailing(t *testing.T) {
	v, err := New(1, 1.0)
	require.NoError(t, err)

	err = v.Recover(20)
	assert.ErrorIs(t, err, ErrValidatorNotFailing)
}

func TestRecordProposal(t *testing.T) {
	v, err := New(1, 1.0)
	require.NoError(t, err)

	v.RecordProposal(42)
	require.NotNil(t, v.LastProposalTime)
	assert.Equal(t, int64(42), *v.LastProposalTime)
	assert.Equal(t, 1, v.BlocksProposed)
}
