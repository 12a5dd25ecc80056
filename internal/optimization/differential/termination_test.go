package differential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/steppelabs/STEPPE/internal/optimization"
)

func TestPolicyCheck(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		state  State
		want   StopReason
	}{
		{
			name:   "nothing fires",
			policy: Policy{MaxGenerations: 10, StopAfter: time.Minute},
			state:  State{Generation: 3, Elapsed: time.Second},
			want:   StopNone,
		},
		{
			name:   "generation cap",
			policy: Policy{MaxGenerations: 10},
			state:  State{Generation: 10},
			want:   StopMaxGenerations,
		},
		{
			name:   "time budget",
			policy: Policy{MaxGenerations: 100, StopAfter: time.Second},
			state:  State{Generation: 1, Elapsed: 2 * time.Second},
			want:   StopTimeBudget,
		},
		{
			name:   "time budget beats generation cap",
			policy: Policy{MaxGenerations: 10, StopAfter: time.Second},
			state:  State{Generation: 10, Elapsed: 2 * time.Second},
			want:   StopTimeBudget,
		},
		{
			name:   "no cap means unlimited generations",
			policy: Policy{StopAfter: time.Minute},
			state:  State{Generation: 1 << 20, Elapsed: time.Second},
			want:   StopNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Check(tt.state))
		})
	}
}

func TestPolicyConvergencePredicate(t *testing.T) {
	policy := Policy{
		MaxGenerations: 100,
		Converged:      FitnessSpreadBelow(1e-9),
	}

	assert.Equal(t, StopNone, policy.Check(State{Generation: 1, Spread: 0.5}))
	assert.Equal(t, StopConverged, policy.Check(State{Generation: 1, Spread: 1e-12}))
}

func TestBestBelow(t *testing.T) {
	pred := BestBelow(1e-6)

	assert.False(t, pred(State{}))
	assert.False(t, pred(State{Best: &optimization.Solution{Value: 0.5}}))
	assert.True(t, pred(State{Best: &optimization.Solution{Value: 1e-9}}))
}
