// Package quantile implements a fixed-capacity reservoir sampler used to
// estimate high percentiles (P99, P99.9) over an unbounded stream without
// retaining every observation.
package quantile

import (
	"math"
	"sort"
	"sync"

	"github.com/rbbnet/bftsim/internal/randsrc"
)

// Reservoir is a capacity-bounded sample of a float64 stream. Its methods
// lock an internal mutex; draws from its Source are made under that lock
// only, so a Source shared with other Reservoirs is not protected by it.
type Reservoir struct {
	mu       sync.RWMutex
	capacity int
	rnd      *randsrc.Source
	sample   []float64
	seen     int64
}

// NewReservoir returns a Reservoir with the given capacity, sampled using
// rnd. capacity must be > 0.
func NewReservoir(capacity int, rnd *randsrc.Source) *Reservoir {
	if capacity <= 0 {
		capacity = 1
	}
	return &Reservoir{capacity: capacity, rnd: rnd, sample: make([]float64, 0, capacity)}
}

// Add records one observation. Once capacity is reached, the n-th observation
// replaces a uniformly random retained sample with probability capacity/n
// (classic reservoir sampling, algorithm R).
func (r *Reservoir) Add(x float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen++
	if len(r.sample) < r.capacity {
		r.sample = append(r.sample, x)
		return
	}
	j := int(r.rnd.Float64() * float64(r.seen))
	if j < r.capacity {
		r.sample[j] = x
	}
}

// Len reports the number of observations currently retained (<= capacity).
func (r *Reservoir) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sample)
}

// Quantile returns the p-th percentile (0 < p <= 100) of the retained
// sample: rank = (p/100) * (n-1), linearly interpolated between the floor
// and ceil ranks. It returns NaN if the reservoir is empty.
func (r *Reservoir) Quantile(p float64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.sample)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, r.sample)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	if rank < 0 {
		rank = 0
	}
	if rank > float64(n-1) {
		rank = float64(n - 1)
	}
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
