package hnsw

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vsearch/resource"
)

// BatchOptions configures BatchInsert.
type BatchOptions struct {
	// Workers is the number of insertion goroutines. Defaults to GOMAXPROCS.
	Workers int

	// Controller bounds workers and transient memory across indexes. Optional.
	Controller *resource.Controller
}

// BatchInsert inserts vectors concurrently and returns their ids in input order.
// On failure it returns a *BatchError for the first failing vector; vectors
// inserted before the failure stay in the graph.
func (g *Graph) BatchInsert(ctx context.Context, vectors [][]float32, opts BatchOptions) ([]uint32, error) {
	if len(vectors) == 0 {
		return []uint32{}, ctx.Err()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(vectors))

	ids := make([]uint32, len(vectors))
	scratch := g.searchScratchBytes(len(vectors))
	if limit := opts.Controller.Config().MemoryLimitBytes; limit > 0 {
		scratch = min(scratch, limit)
	}

	var cursor atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	for range workers {
		eg.Go(func() error {
			if err := opts.Controller.AcquireWorker(ctx); err != nil {
				return err
			}
			defer opts.Controller.ReleaseWorker()

			if err := opts.Controller.AcquireMemory(ctx, scratch); err != nil {
				return err
			}
			defer opts.Controller.ReleaseMemory(scratch)

			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(vectors) {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}

				id, err := g.Insert(vectors[i])
				if err != nil {
					return &BatchError{Index: i, Err: err}
				}
				ids[i] = id
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return ids, nil
}

// searchScratchBytes estimates the transient memory one insertion worker
// needs: a visited bitset sized for the final graph plus two beam queues.
func (g *Graph) searchScratchBytes(pending int) int64 {
	n := int64(g.Len() + pending)
	return n/8 + int64(2*(g.opts.EFConstruction+1)*8)
}
