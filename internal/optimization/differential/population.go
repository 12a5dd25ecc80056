package differential

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Individual is a candidate vector plus its fitness. Fitness NaN marks
// an individual whose objective value has not been computed yet. The
// vector and fitness are always replaced together.
type Individual struct {
	Vector  []float64
	Fitness float64
}

// Evaluated reports whether the individual carries a computed fitness.
func (ind *Individual) Evaluated() bool {
	return !math.IsNaN(ind.Fitness)
}

// Population is an ordered, fixed-size collection of individuals. Size
// never changes after initialization; selection overwrites members in
// place.
type Population []Individual

// NewPopulation draws size individuals from the space, fitness
// unevaluated.
func NewPopulation(space *Space, size int, rng *rand.Rand) Population {
	pop := make(Population, size)
	for i := range pop {
		pop[i] = Individual{
			Vector:  space.Sample(rng),
			Fitness: math.NaN(),
		}
	}
	return pop
}

// Replace overwrites the individual at index i. Used only after
// selection confirms the trial is at least as good as the incumbent.
func (p Population) Replace(i int, ind Individual) {
	p[i] = ind
}

// Best returns the index of the individual with the smallest fitness.
// Ties break toward the lowest index so the result is deterministic.
// Unevaluated individuals are skipped; returns -1 when none are
// evaluated.
func (p Population) Best() int {
	best := -1
	for i := range p {
		if !p[i].Evaluated() {
			continue
		}
		if best < 0 || p[i].Fitness < p[best].Fitness {
			best = i
		}
	}
	return best
}

// FitnessSpread returns the population standard deviation of fitness
// values, used by convergence predicates. Returns NaN when fewer than
// two individuals are evaluated.
func (p Population) FitnessSpread() float64 {
	values := make([]float64, 0, len(p))
	for i := range p {
		if p[i].Evaluated() {
			values = append(values, p[i].Fitness)
		}
	}
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.StdDev(values, nil)
}
