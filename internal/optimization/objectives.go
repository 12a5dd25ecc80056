package optimization

import (
	"fmt"
	"math"
	"sort"
)

// Standard benchmark objectives, addressable by name so that the server
// and tools can construct runs without shipping code. All are
// minimization problems.

// Sphere is the convex quadratic f(x) = sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// Rosenbrock is the banana-valley function, minimum 0 at (1, ..., 1).
func Rosenbrock(x []float64) (float64, error) {
	if len(x) < 2 {
		return 0, fmt.Errorf("rosenbrock requires at least 2 dimensions, got %d", len(x))
	}
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}

// Rastrigin is a highly multimodal function, minimum 0 at the origin.
// Conventional domain is [-5.12, 5.12] per dimension.
func Rastrigin(x []float64) (float64, error) {
	sum := 10.0 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

// Schwefel has its global minimum far from the origin, at
// x_i ~= 420.9687 with value ~0. Conventional domain is [-500, 500].
func Schwefel(x []float64) (float64, error) {
	sum := 418.9829 * float64(len(x))
	for _, v := range x {
		sum -= v * math.Sin(math.Sqrt(math.Abs(v)))
	}
	return sum, nil
}

// Ackley is multimodal with a nearly flat outer region, minimum 0 at the
// origin. Conventional domain is [-32.768, 32.768].
func Ackley(x []float64) (float64, error) {
	n := float64(len(x))
	sumSq, sumCos := 0.0, 0.0
	for _, v := range x {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E, nil
}

var objectiveRegistry = map[string]ObjectiveFunction{
	"sphere":     Sphere,
	"rosenbrock": Rosenbrock,
	"rastrigin":  Rastrigin,
	"schwefel":   Schwefel,
	"ackley":     Ackley,
}

// LookupObjective returns the benchmark objective registered under name.
func LookupObjective(name string) (ObjectiveFunction, bool) {
	fn, ok := objectiveRegistry[name]
	return fn, ok
}

// ObjectiveNames returns the registered benchmark names in sorted order.
func ObjectiveNames() []string {
	names := make([]string, 0, len(objectiveRegistry))
	for name := range objectiveRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
