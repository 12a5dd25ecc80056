package differential

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPopulation(t *testing.T) {
	space, err := NewSpace([][2]float64{{-5, 5}, {0, 1}})
	require.NoError(t, err)

	pop := NewPopulation(space, 20, rand.New(rand.NewSource(1)))
	require.Len(t, pop, 20)

	for i := range pop {
		assert.True(t, space.Contains(pop[i].Vector), "member %d out of bounds", i)
		assert.False(t, pop[i].Evaluated(), "member %d should start unevaluated", i)
	}
}

func TestPopulationBest(t *testing.T) {
	pop := Population{
		{Vector: []float64{0}, Fitness: 3.0},
		{Vector: []float64{1}, Fitness: 1.0},
		{Vector: []float64{2}, Fitness: 1.0}, // tie with index 1
		{Vector: []float64{3}, Fitness: 2.0},
	}

	// Ties break toward the lowest index
	assert.Equal(t, 1, pop.Best())
}

func TestPopulationBestSkipsUnevaluated(t *testing.T) {
	pop := Population{
		{Vector: []float64{0}, Fitness: math.NaN()},
		{Vector: []float64{1}, Fitness: 5.0},
	}
	assert.Equal(t, 1, pop.Best())

	empty := Population{
		{Vector: []float64{0}, Fitness: math.NaN()},
	}
	assert.Equal(t, -1, empty.Best())
}

func TestPopulationReplace(t *testing.T) {
	pop := Population{
		{Vector: []float64{0}, Fitness: 3.0},
		{Vector: []float64{1}, Fitness: 1.0},
	}

	pop.Replace(0, Individual{Vector: []float64{9}, Fitness: 0.5})
	assert.Equal(t, []float64{9}, pop[0].Vector)
	assert.Equal(t, 0.5, pop[0].Fitness)
	assert.Equal(t, 0, pop.Best())
}

func TestPopulationFitnessSpread(t *testing.T) {
	pop := Population{
		{Vector: []float64{0}, Fitness: 1.0},
		{Vector: []float64{1}, Fitness: 1.0},
		{Vector: []float64{2}, Fitness: 1.0},
	}
	assert.InDelta(t, 0.0, pop.FitnessSpread(), 1e-12)

	single := Population{{Vector: []float64{0}, Fitness: 1.0}}
	assert.True(t, math.IsNaN(single.FitnessSpread()))
}
