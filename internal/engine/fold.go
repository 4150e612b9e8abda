package engine

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"eve-hauler/internal/everef"
)

// EffectiveWorkers returns the parallelism to use, falling back to
// GOMAXPROCS when v <= 0.
func EffectiveWorkers(v int) int {
	if v <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return v
}

// FoldParams configures the parallel fold of order batches into quotes.
type FoldParams struct {
	Band      float64
	MaxPoints int
	Workers   int // <= 0 picks GOMAXPROCS
}

// Fold drains order batches from feed into per-worker accumulators and
// merges the partials into one. feed is called once with an emit function;
// each emitted batch is handed off to the workers, so the caller must not
// reuse batch slices. The first error from feed aborts the fold.
func Fold(p FoldParams, feed func(emit func([]everef.SellOrder) error) error) (*Accumulator, error) {
	workers := EffectiveWorkers(p.Workers)

	batches := make(chan []everef.SellOrder, workers)
	partials := make([]*Accumulator, workers)

	g := new(errgroup.Group)
	for i := 0; i < workers; i++ {
		acc := NewAccumulator(p.Band, p.MaxPoints)
		partials[i] = acc
		g.Go(func() error {
			for batch := range batches {
				acc.AddBatch(batch)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(batches)
		return feed(func(batch []everef.SellOrder) error {
			batches <- batch
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := partials[0]
	for _, part := range partials[1:] {
		total.Merge(part)
	}
	return total, nil
}
