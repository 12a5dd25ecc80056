package differential

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/steppelabs/STEPPE/internal/optimization"
)

// Default parameter values applied by New when the caller leaves a field
// zero. F and CR follow the classic Storn/Price recommendations.
const (
	DefaultMutation          = 0.5
	DefaultRecombination     = 0.7
	DefaultPopsizeMultiplier = 10
	DefaultMaxIterations     = 100
)

// Config contains the configuration for a differential evolution run.
// Zero values for Mutation, PopsizeMultiplier, and WorkerCount are
// replaced with defaults by New; invalid values are rejected with a
// ConfigError before any population exists.
type Config struct {
	// Objective is the function being minimized
	Objective optimization.ObjectiveFunction

	// Bounds for each dimension [min, max]
	Bounds [][2]float64

	// Mutation is the differential weight F applied to the donor
	// difference vector. Must be positive; values above 2 are unusual.
	Mutation float64

	// Recombination is the crossover probability CR in [0, 1]. Zero is
	// a valid value: each trial then takes only its forced dimension
	// from the mutant. DefaultRecombination is the recommended starting
	// point.
	Recombination float64

	// PopsizeMultiplier scales the population: size = multiplier * dims.
	// The resulting size must be at least 4, since mutation needs three
	// distinct donors besides the target.
	PopsizeMultiplier int

	// MaxIterations caps the number of generations
	MaxIterations int

	// StopAfter is the wall-clock budget for the run. Zero means no
	// budget. Checked at generation boundaries only.
	StopAfter time.Duration

	// Converged is an optional convergence predicate consulted once per
	// generation
	Converged func(State) bool

	// Parallel dispatches each generation's trial evaluations across a
	// worker pool instead of evaluating them in index order
	Parallel bool

	// WorkerCount is the pool size used when Parallel is set. Defaults
	// to runtime.NumCPU(). Independent of the population size.
	WorkerCount int

	// RandomSeed for reproducibility. Sequential runs with the same
	// seed and configuration are bit-identical. Zero seeds from the
	// wall clock.
	RandomSeed int64
}

// State is a snapshot of a run at a generation boundary. Snapshots are
// self-contained; mutating one never affects the engine.
type State struct {
	// Generation is the number of completed evolution generations. The
	// initial population evaluation is generation 0.
	Generation int

	// Elapsed is wall-clock time since the run started
	Elapsed time.Duration

	// Evaluations is the total number of objective calls so far
	Evaluations int

	// Best is the best solution observed so far, never worsening across
	// generations
	Best *optimization.Solution

	// Spread is the population standard deviation of fitness, for
	// convergence predicates
	Spread float64
}

// Engine runs one DE/rand/1/bin optimization. It produces a lazy,
// forward-only sequence of per-generation State snapshots via Next;
// Solve drains the sequence. An engine cannot be restarted: construct a
// new one for a new run.
type Engine struct {
	cfg    Config
	policy Policy
	space  *Space
	pop    Population
	eval   Evaluator
	rng    *deRand

	started bool
	done    bool
	reason  StopReason
	stop    atomic.Bool

	start time.Time
	state State
	best  *optimization.Solution
}

// New validates the configuration and returns an engine ready to run.
func New(cfg Config) (*Engine, error) {
	if cfg.Objective == nil {
		return nil, optimization.NewConfigError("Objective", "objective function is required")
	}

	space, err := NewSpace(cfg.Bounds)
	if err != nil {
		return nil, err
	}

	if cfg.Mutation == 0 {
		cfg.Mutation = DefaultMutation
	}
	if cfg.PopsizeMultiplier == 0 {
		cfg.PopsizeMultiplier = DefaultPopsizeMultiplier
	}
	if cfg.MaxIterations == 0 && cfg.StopAfter == 0 && cfg.Converged == nil {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}

	if cfg.Mutation <= 0 {
		return nil, optimization.NewConfigErrorf("Mutation", "must be positive, got %v", cfg.Mutation)
	}
	if cfg.Recombination < 0 || cfg.Recombination > 1 {
		return nil, optimization.NewConfigErrorf("Recombination", "must be in [0, 1], got %v", cfg.Recombination)
	}
	size := cfg.PopsizeMultiplier * space.Dims()
	if size < 4 {
		return nil, optimization.NewConfigErrorf("PopsizeMultiplier",
			"population size %d (multiplier %d x %d dims) is below the minimum of 4",
			size, cfg.PopsizeMultiplier, space.Dims())
	}
	if cfg.MaxIterations < 0 {
		return nil, optimization.NewConfigErrorf("MaxIterations", "must not be negative, got %d", cfg.MaxIterations)
	}
	if cfg.WorkerCount < 1 {
		return nil, optimization.NewConfigErrorf("WorkerCount", "must be at least 1, got %d", cfg.WorkerCount)
	}

	var eval Evaluator
	if cfg.Parallel {
		eval = NewPoolEvaluator(cfg.Objective, cfg.WorkerCount)
	} else {
		eval = NewSerialEvaluator(cfg.Objective)
	}

	return &Engine{
		cfg: cfg,
		policy: Policy{
			MaxGenerations: cfg.MaxIterations,
			StopAfter:      cfg.StopAfter,
			Converged:      cfg.Converged,
		},
		space: space,
		eval:  eval,
		rng:   newDERand(cfg.RandomSeed),
	}, nil
}

// Next advances the run by one generation and returns its snapshot. The
// first call initializes and evaluates the population (generation 0).
// ok is false once the sequence is exhausted; the terminal snapshot is
// the last one returned with ok true. A failing objective evaluation
// ends the sequence with an ObjectiveError; the in-flight generation is
// discarded but Best from completed generations stays available.
func (e *Engine) Next(ctx context.Context) (State, bool, error) {
	if e.done {
		return e.state, false, nil
	}
	if err := ctx.Err(); err != nil {
		e.finish(StopNone)
		return e.state, false, err
	}
	if e.stop.Load() {
		e.finish(StopNone)
		return e.state, false, nil
	}

	if !e.started {
		if err := e.initialize(ctx); err != nil {
			e.finish(StopNone)
			return e.state, false, err
		}
	} else {
		if err := e.evolve(ctx); err != nil {
			e.finish(StopNone)
			return e.state, false, err
		}
	}

	e.snapshot()
	if reason := e.policy.Check(e.state); reason != StopNone {
		e.finish(reason)
	}
	return e.state, true, nil
}

// Solve runs the engine to termination and returns the best solution
// found. It implements optimization.Optimizer together with
// BestSolution and Stop.
func (e *Engine) Solve(ctx context.Context) (*optimization.Result, error) {
	for {
		_, ok, err := e.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return &optimization.Result{
		BestSolution: e.best.Clone(),
		Generations:  e.state.Generation,
		Evaluations:  e.state.Evaluations,
		Converged:    e.reason == StopConverged,
	}, nil
}

// Optimize runs the optimization process to termination.
func (e *Engine) Optimize(ctx context.Context) (*optimization.Result, error) {
	return e.Solve(ctx)
}

// BestSolution returns the best solution observed so far, or nil before
// the first generation completes.
func (e *Engine) BestSolution() *optimization.Solution {
	return e.best.Clone()
}

// Stop requests a graceful stop at the next generation boundary. Safe to
// call from another goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Reason returns the termination reason once the run has ended.
func (e *Engine) Reason() StopReason {
	return e.reason
}

// initialize draws the population and evaluates its fitness in one batch.
func (e *Engine) initialize(ctx context.Context) error {
	e.start = time.Now()
	e.started = true

	size := e.cfg.PopsizeMultiplier * e.space.Dims()
	e.pop = NewPopulation(e.space, size, e.rng.Rand)

	vectors := make([][]float64, size)
	for i := range e.pop {
		vectors[i] = e.pop[i].Vector
	}
	values, err := e.eval.EvaluateBatch(ctx, vectors)
	if err != nil {
		return err
	}
	for i, v := range values {
		e.pop[i].Fitness = v
		e.observe(e.pop[i])
	}
	e.state.Evaluations += size
	return nil
}

// evolve runs one full generation: mutation and crossover for every
// target, one batched evaluation of all trials, then greedy selection.
// All trials are built and evaluated against a single population
// snapshot before any replacement, so donor selection always sees a
// consistent generation.
func (e *Engine) evolve(ctx context.Context) error {
	size := len(e.pop)
	trials := make([][]float64, size)
	for i := 0; i < size; i++ {
		mutant := e.mutate(i)
		trials[i] = e.crossover(e.pop[i].Vector, mutant)
	}

	values, err := e.eval.EvaluateBatch(ctx, trials)
	if err != nil {
		return err
	}
	e.state.Evaluations += size

	// Greedy selection; ties favor the trial to keep exploring flat
	// regions.
	for i := 0; i < size; i++ {
		if values[i] <= e.pop[i].Fitness {
			e.pop.Replace(i, Individual{Vector: trials[i], Fitness: values[i]})
			e.observe(e.pop[i])
		}
	}
	e.state.Generation++
	return nil
}

// mutate builds the clamped rand/1 mutant for target index i:
// x_r1 + F * (x_r2 - x_r3) with r1, r2, r3 pairwise distinct and
// distinct from i.
func (e *Engine) mutate(i int) []float64 {
	r1, r2, r3 := e.rng.distinctDonors(len(e.pop), i)
	mutant := make([]float64, e.space.Dims())
	floats.SubTo(mutant, e.pop[r2].Vector, e.pop[r3].Vector)
	floats.AddScaledTo(mutant, e.pop[r1].Vector, e.cfg.Mutation, mutant)
	return e.space.Clamp(mutant)
}

// crossover builds the binomial trial vector. One dimension, chosen
// uniformly at random, always comes from the mutant so the trial differs
// from the target in at least one coordinate even when CR is 0.
func (e *Engine) crossover(target, mutant []float64) []float64 {
	trial := make([]float64, len(target))
	forced := e.rng.Intn(len(target))
	for d := range trial {
		if d == forced || e.rng.Float64() < e.cfg.Recombination {
			trial[d] = mutant[d]
		} else {
			trial[d] = target[d]
		}
	}
	return trial
}

// observe updates the best-so-far solution if ind improves on it.
func (e *Engine) observe(ind Individual) {
	if e.best == nil || ind.Fitness < e.best.Value {
		e.best = &optimization.Solution{
			Parameters: append([]float64(nil), ind.Vector...),
			Value:      ind.Fitness,
		}
	}
}

// snapshot refreshes the externally visible run state.
func (e *Engine) snapshot() {
	e.state.Elapsed = time.Since(e.start)
	e.state.Best = e.best.Clone()
	e.state.Spread = e.pop.FitnessSpread()
}

func (e *Engine) finish(reason StopReason) {
	e.done = true
	e.reason = reason
}
