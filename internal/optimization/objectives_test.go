package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmarkMinima(t *testing.T) {
	tests := []struct {
		name string
		fn   ObjectiveFunction
		at   []float64
		want float64
		tol  float64
	}{
		{name: "sphere origin", fn: Sphere, at: []float64{0, 0, 0}, want: 0, tol: 0},
		{name: "sphere offset", fn: Sphere, at: []float64{1, 2}, want: 5, tol: 0},
		{name: "rosenbrock minimum", fn: Rosenbrock, at: []float64{1, 1, 1}, want: 0, tol: 1e-12},
		{name: "rastrigin origin", fn: Rastrigin, at: []float64{0, 0}, want: 0, tol: 1e-12},
		{name: "schwefel optimum", fn: Schwefel, at: []float64{420.9687, 420.9687}, want: 0, tol: 1e-3},
		{name: "ackley origin", fn: Ackley, at: []float64{0, 0, 0, 0}, want: 0, tol: 1e-12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.at)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestRosenbrockRejectsOneDimension(t *testing.T) {
	_, err := Rosenbrock([]float64{1})
	assert.Error(t, err)
}

func TestLookupObjective(t *testing.T) {
	fn, ok := LookupObjective("sphere")
	require.True(t, ok)
	v, err := fn([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	_, ok = LookupObjective("no-such-function")
	assert.False(t, ok)
}

func TestObjectiveNamesSorted(t *testing.T) {
	names := ObjectiveNames()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "schwefel")
}

func TestObjectiveValuesFinite(t *testing.T) {
	for _, name := range ObjectiveNames() {
		fn, _ := LookupObjective(name)
		v, err := fn([]float64{0.5, -0.5})
		require.NoError(t, err, name)
		assert.False(t, math.IsNaN(v), name)
		assert.False(t, math.IsInf(v, 0), name)
	}
}
