package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process to termination
	Optimize(ctx context.Context) (*Result, error)

	// BestSolution returns the best solution found so far.
	// Safe to call after an aborted run; it returns the best of the
	// completed generations.
	BestSolution() *Solution

	// Stop requests a graceful stop at the next generation boundary
	Stop()
}

// ObjectiveFunction is the black-box scalar function being minimized.
// It must be a pure function of its input when evaluated in parallel;
// this is a caller obligation and is not enforced.
type ObjectiveFunction func([]float64) (float64, error)

// Solution represents a candidate in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Clone returns a deep copy of the solution.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Parameters: append([]float64(nil), s.Parameters...),
		Value:      s.Value,
	}
}

// Result contains the outcome of an optimization run
type Result struct {
	BestSolution *Solution
	Generations  int
	Evaluations  int
	Converged    bool
}
