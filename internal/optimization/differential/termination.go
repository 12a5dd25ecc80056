package differential

import (
	"time"
)

// StopReason names the condition that terminated a run.
type StopReason string

const (
	// StopNone means no termination condition has fired.
	StopNone StopReason = ""
	// StopMaxGenerations means the generation cap was reached.
	StopMaxGenerations StopReason = "max_generations"
	// StopTimeBudget means the wall-clock budget elapsed.
	StopTimeBudget StopReason = "time_budget"
	// StopConverged means the convergence predicate was satisfied.
	StopConverged StopReason = "converged"
)

// Policy decides when a run stops. It is a pure function of the run
// state and its own configuration; it never mutates the population. The
// engine consults it once per generation boundary.
type Policy struct {
	// MaxGenerations caps the number of generations. Zero or negative
	// means no cap.
	MaxGenerations int
	// StopAfter is the wall-clock budget. Zero means unlimited; the
	// engine checks the budget at generation boundaries only, so an
	// in-flight batch always completes.
	StopAfter time.Duration
	// Converged is an optional predicate over the run state, consulted
	// after the cap and budget checks.
	Converged func(State) bool
}

// Check returns the first stop condition satisfied by s, or StopNone.
func (p Policy) Check(s State) StopReason {
	if p.StopAfter > 0 && s.Elapsed >= p.StopAfter {
		return StopTimeBudget
	}
	if p.MaxGenerations > 0 && s.Generation >= p.MaxGenerations {
		return StopMaxGenerations
	}
	if p.Converged != nil && p.Converged(s) {
		return StopConverged
	}
	return StopNone
}

// FitnessSpreadBelow returns a convergence predicate that fires when the
// population's fitness standard deviation drops below eps.
func FitnessSpreadBelow(eps float64) func(State) bool {
	return func(s State) bool {
		return s.Spread < eps
	}
}

// BestBelow returns a convergence predicate that fires when the best
// fitness observed so far drops below target.
func BestBelow(target float64) func(State) bool {
	return func(s State) bool {
		return s.Best != nil && s.Best.Value < target
	}
}
