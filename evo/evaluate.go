package evo

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// EvaluateFunc runs one individual through a simulation and records its
// fitness on ind. It may be called concurrently for different individuals.
type EvaluateFunc func(ctx context.Context, ind *Individual, c Controller) error

// Evaluate calls fn for every individual of the current generation using at
// most workers goroutines (GOMAXPROCS when workers <= 0). The first error
// cancels the context passed to the remaining calls; all errors are returned
// joined.
func (p *Population) Evaluate(ctx context.Context, fn EvaluateFunc, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	wp := pool.New().
		WithMaxGoroutines(workers).
		WithErrors().
		WithContext(ctx).
		WithCancelOnError()

	for i, ind := range p.individuals {
		ind := ind // per-iteration copy (go directive < 1.22)
		ctrl := p.Controller(i)
		wp.Go(func(ctx context.Context) error {
			if err := fn(ctx, ind, ctrl); err != nil {
				return fmt.Errorf("individual %d: %w", ind.Index, err)
			}
			return nil
		})
	}
	return wp.Wait()
}
