package differential

import (
	"context"
	"math"
	"sync"

	"github.com/steppelabs/STEPPE/internal/optimization"
)

// Evaluator computes objective values for a batch of vectors. Results
// are returned in input order so callers can zip trials back to their
// fitness without an index map. A single failing evaluation aborts the
// whole batch with an ObjectiveError; no sentinel value is ever
// substituted, since a non-numeric fitness would corrupt selection.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, vectors [][]float64) ([]float64, error)
}

// serialEvaluator calls the objective once per vector, in index order,
// on the calling goroutine.
type serialEvaluator struct {
	objective optimization.ObjectiveFunction
}

// NewSerialEvaluator returns an Evaluator that runs every evaluation on
// the calling goroutine. Fully deterministic given a deterministic
// objective.
func NewSerialEvaluator(objective optimization.ObjectiveFunction) Evaluator {
	return &serialEvaluator{objective: objective}
}

func (e *serialEvaluator) EvaluateBatch(ctx context.Context, vectors [][]float64) ([]float64, error) {
	values := make([]float64, len(vectors))
	for i, x := range vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.objective(x)
		if err != nil {
			return nil, optimization.NewObjectiveError(x, err)
		}
		if math.IsNaN(v) {
			return nil, optimization.NewObjectiveErrorf(x, "objective returned NaN")
		}
		values[i] = v
	}
	return values, nil
}

// poolEvaluator dispatches a batch across a fixed-size worker pool. The
// pool size is independent of the batch size. Workers receive only the
// read-only vector and return a fitness; population and RNG state stay
// with the orchestrating goroutine.
type poolEvaluator struct {
	objective optimization.ObjectiveFunction
	workers   int
}

// NewPoolEvaluator returns an Evaluator backed by workers goroutines per
// batch. workers values below 1 are treated as 1.
func NewPoolEvaluator(objective optimization.ObjectiveFunction, workers int) Evaluator {
	if workers < 1 {
		workers = 1
	}
	return &poolEvaluator{objective: objective, workers: workers}
}

// EvaluateBatch blocks until every in-flight evaluation has finished,
// even when one of them fails. Stopping mid-batch is not supported; the
// per-generation barrier bounds worst-case overrun to one batch.
func (e *poolEvaluator) EvaluateBatch(ctx context.Context, vectors [][]float64) ([]float64, error) {
	values := make([]float64, len(vectors))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	setErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	workers := e.workers
	if workers > len(vectors) {
		workers = len(vectors)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				v, err := e.objective(vectors[i])
				if err != nil {
					setErr(optimization.NewObjectiveError(vectors[i], err))
					continue
				}
				if math.IsNaN(v) {
					setErr(optimization.NewObjectiveErrorf(vectors[i], "objective returned NaN"))
					continue
				}
				values[i] = v
			}
		}()
	}

	for i := range vectors {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
