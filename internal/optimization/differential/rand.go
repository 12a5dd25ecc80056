package differential

import (
	"math/rand"
	"time"
)

// deRand wraps the run's random source. The stream is owned exclusively
// by the orchestrating goroutine; workers never draw from it, which
// keeps sequential runs bit-reproducible under a fixed seed.
type deRand struct {
	*rand.Rand
}

func newDERand(seed int64) *deRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &deRand{Rand: rand.New(rand.NewSource(seed))}
}

// distinctDonors draws three indices in [0, n) that are pairwise
// distinct and all different from target, uniformly without replacement.
func (r *deRand) distinctDonors(n, target int) (int, int, int) {
	r1 := r.Intn(n)
	for r1 == target {
		r1 = r.Intn(n)
	}
	r2 := r.Intn(n)
	for r2 == target || r2 == r1 {
		r2 = r.Intn(n)
	}
	r3 := r.Intn(n)
	for r3 == target || r3 == r1 || r3 == r2 {
		r3 = r.Intn(n)
	}
	return r1, r2, r3
}
