// Package randsrc provides the seeded random source shared by a simulation
// run: uniform draws, exponential-delay sampling, and Bernoulli trials.
package randsrc

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
)

// Source wraps a *math/rand.Rand with the sampling primitives the simulator
// needs. It is not safe for concurrent use; each simulation run owns one.
type Source struct {
	r *mrand.Rand
}

// New returns a Source seeded deterministically from seed. A seed of 0 draws
// entropy from the OS CSPRNG instead, for production batch runs where
// reproducibility is not required.
func New(seed int64) *Source {
	if seed == 0 {
		seed = cryptoSeed()
	}
	return &Source{r: mrand.New(mrand.NewSource(seed))}
}

func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// platform; fall back to a fixed seed rather than panic.
		return 1
	}
	v := int64(binary.LittleEndian.Uint64(buf[:]))
	if v == 0 {
		v = 1
	}
	return v
}

// Sub derives an independent child Source for batch run index i, given this
// Source's seed stream. Two children with different i never produce
// correlated draws, and a fixed base seed makes every child reproducible.
func (s *Source) Sub(i int) *Source {
	childSeed := s.r.Int63()
	childSeed ^= int64(i)*0x9E3779B97F4A7C15 + 1
	if childSeed == 0 {
		childSeed = 1
	}
	return &Source{r: mrand.New(mrand.NewSource(childSeed))}
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Bool returns true with probability p (a Bernoulli trial).
func (s *Source) Bool(p float64) bool { return s.r.Float64() < p }

// Exponential draws from an exponential distribution with the given rate
// (events per second). rate must be > 0.
func (s *Source) Exponential(rate float64) float64 {
	u := s.r.Float64()
	// avoid log(0)
	for u == 0 {
		u = s.r.Float64()
	}
	return -math.Log(u) / rate
}
