package randsrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DeterministicForSameSeed(t *testing.T) {
	a := New(123)
	b := New(123)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestNew_ZeroSeedDoesNotPanic(t *testing.T) {
	s := New(0)
	assert.GreaterOrEqual(t, s.Float64(), 0.0)
}

func TestSub_ProducesIndependentButDeterministicStreams(t *testing.T) {
	base1 := New(1)
	base2 := New(1)

	child1 := base1.Sub(5)
	child2 := base2.Sub(5)
	assert.Equal(t, child1.Float64(), child2.Float64())

	other := base1.Sub(6)
	assert.NotEqual(t, child1.Float64(), other.Float64())
}

func TestExponential_PositiveAndVaries(t *testing.T) {
	s := New(1)
	seen := map[float64]bool{}
	for i := 0; i < 20; i++ {
		v := s.Exponential(1.0 / 100)
		assert.GreaterOrEqual(t, v, 0.0)
		seen[v] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestBool_RespectsExtremes(t *testing.T) {
	s := New(1)
	assert.False(t, s.Bool(0))
	assert.True(t, s.Bool(1))
}
