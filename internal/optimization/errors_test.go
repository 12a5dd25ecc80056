package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsErrorMessages(t *testing.T) {
	err := NewDimBoundsError(2, 5, -5)
	assert.Contains(t, err.Error(), "dimension 2")
	assert.Contains(t, err.Error(), "low < high")

	empty := NewBoundsError("empty bounds sequence")
	assert.Contains(t, empty.Error(), "empty bounds sequence")
}

func TestConfigError(t *testing.T) {
	err := NewConfigErrorf("Mutation", "must be positive, got %v", -1.0)
	assert.Equal(t, "Mutation", err.Field)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "Mutation")
}

func TestObjectiveErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("division by zero")
	err := NewObjectiveError([]float64{1, 2}, cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, []float64{1, 2}, err.Vector)
	assert.Contains(t, err.Error(), "division by zero")

	var objErr *ObjectiveError
	assert.True(t, errors.As(error(err), &objErr))
}

func TestObjectiveErrorCopiesVector(t *testing.T) {
	x := []float64{1, 2}
	err := NewObjectiveError(x, fmt.Errorf("boom"))
	x[0] = 99
	assert.Equal(t, 1.0, err.Vector[0], "error must hold its own copy of the vector")
}
