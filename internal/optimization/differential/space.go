// Package differential implements the DE/rand/1/bin differential
// evolution optimizer with sequential and parallel objective evaluation.
package differential

import (
	"math"
	"math/rand"

	"github.com/steppelabs/STEPPE/internal/optimization"
)

// Space is the bounded search domain: one [low, high) interval per
// dimension. Bounds are immutable for the lifetime of a run.
type Space struct {
	bounds [][2]float64
}

// NewSpace validates the bounds and returns the search space. It returns
// a BoundsError when the sequence is empty or any dimension has
// low >= high.
func NewSpace(bounds [][2]float64) (*Space, error) {
	if len(bounds) == 0 {
		return nil, optimization.NewBoundsError("empty bounds sequence")
	}
	for i, b := range bounds {
		if math.IsNaN(b[0]) || math.IsNaN(b[1]) || b[0] >= b[1] {
			return nil, optimization.NewDimBoundsError(i, b[0], b[1])
		}
	}
	copied := make([][2]float64, len(bounds))
	copy(copied, bounds)
	return &Space{bounds: copied}, nil
}

// Dims returns the dimensionality of the space.
func (s *Space) Dims() int {
	return len(s.bounds)
}

// Bounds returns the per-dimension intervals. Callers must not mutate
// the returned slice.
func (s *Space) Bounds() [][2]float64 {
	return s.bounds
}

// Sample draws a vector with each component uniform in its dimension's
// [low, high) interval.
func (s *Space) Sample(rng *rand.Rand) []float64 {
	x := make([]float64, len(s.bounds))
	for i, b := range s.bounds {
		x[i] = b[0] + rng.Float64()*(b[1]-b[0])
	}
	return x
}

// Clamp repairs x in place, clamping every out-of-range component to the
// nearest bound, and returns x. Clamping is the single repair policy for
// a run; mutants that leave the domain are pulled back to the boundary
// rather than reflected or resampled.
func (s *Space) Clamp(x []float64) []float64 {
	for i, b := range s.bounds {
		if x[i] < b[0] {
			x[i] = b[0]
		} else if x[i] > b[1] {
			x[i] = b[1]
		}
	}
	return x
}

// Contains reports whether every component of x lies within its
// dimension's bound.
func (s *Space) Contains(x []float64) bool {
	if len(x) != len(s.bounds) {
		return false
	}
	for i, b := range s.bounds {
		if x[i] < b[0] || x[i] > b[1] {
			return false
		}
	}
	return true
}
