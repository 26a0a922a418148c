package vsearch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/vsearch/internal/bruteforce"
	"github.com/hupe1980/vsearch/internal/hnsw"
)

// SearchResult is a vector id and its squared Euclidean distance to the query.
type SearchResult struct {
	ID       uint32
	Distance float32
}

// Stats describes the graph structure of an index.
type Stats = hnsw.Stats

// LevelStats describes one graph layer.
type LevelStats = hnsw.LevelStats

// ProgressFunc is called by AddChunked after each chunk with the number of
// vectors inserted so far and the total.
type ProgressFunc func(done, total int)

// VectorIndex is an in-memory HNSW index over fixed-dimension float32 vectors.
//
// Inserts take an exclusive lock; searches, Save and Stats share a read lock.
// A VectorIndex is safe for concurrent use.
type VectorIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph
	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// New creates an empty index for vectors of dimension dim.
func New(dim int, optFns ...Option) (*VectorIndex, error) {
	o := applyOptions(optFns)
	if o.workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidParameter, o.workers)
	}
	if !o.compression.Valid() {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidParameter, o.compression)
	}

	g, err := hnsw.New(o.hnswOptions(dim))
	if err != nil {
		return nil, translateError(err)
	}

	return newIndex(g, o), nil
}

func newIndex(g *hnsw.Graph, o options) *VectorIndex {
	return &VectorIndex{
		graph:   g,
		opts:    o,
		logger:  o.logger.WithDimension(g.Dimension()),
		metrics: o.metrics,
	}
}

// Add inserts a vector and returns its id. Ids are assigned densely from 0.
func (v *VectorIndex) Add(ctx context.Context, vector []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()

	v.mu.Lock()
	id, err := v.graph.Insert(vector)
	v.mu.Unlock()

	err = translateError(err)
	v.metrics.RecordInsert(time.Since(start), err)
	v.logger.LogInsert(ctx, id, err)

	if err != nil {
		return 0, err
	}
	return id, nil
}

// AddParallel inserts vectors using a pool of worker goroutines and returns
// their ids in input order.
//
// If a vector fails, the returned *BatchError names its input position.
// Vectors inserted before the failure remain in the index.
func (v *VectorIndex) AddParallel(ctx context.Context, vectors [][]float32) ([]uint32, error) {
	start := time.Now()

	v.mu.Lock()
	ids, err := v.addBatchLocked(ctx, vectors)
	v.mu.Unlock()

	v.recordBatch(ctx, len(vectors), start, err)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AddChunked inserts vectors in chunks of chunkSize, calling progress after
// each chunk. A chunkSize of 0 uses DefaultChunkSize. Chunking bounds the
// transient memory of a batch and has no effect on the resulting index.
func (v *VectorIndex) AddChunked(ctx context.Context, vectors [][]float32, chunkSize int, progress ProgressFunc) ([]uint32, error) {
	if chunkSize < 0 {
		return nil, fmt.Errorf("%w: chunk size must not be negative, got %d", ErrInvalidParameter, chunkSize)
	}
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	start := time.Now()
	ids := make([]uint32, 0, len(vectors))

	v.mu.Lock()
	defer v.mu.Unlock()

	for offset := 0; offset < len(vectors); offset += chunkSize {
		chunk := vectors[offset:min(offset+chunkSize, len(vectors))]

		chunkIDs, err := v.addBatchLocked(ctx, chunk)
		if err != nil {
			var be *BatchError
			if errors.As(err, &be) {
				err = &BatchError{Index: offset + be.Index, Err: be.Err}
			}
			v.recordBatch(ctx, len(vectors), start, err)
			return nil, err
		}
		ids = append(ids, chunkIDs...)

		if progress != nil {
			progress(len(ids), len(vectors))
		}
		v.logger.LogProgress(ctx, len(ids), len(vectors))
	}

	v.recordBatch(ctx, len(vectors), start, nil)
	return ids, nil
}

func (v *VectorIndex) addBatchLocked(ctx context.Context, vectors [][]float32) ([]uint32, error) {
	ids, err := v.graph.BatchInsert(ctx, vectors, hnsw.BatchOptions{
		Workers:    v.opts.workers,
		Controller: v.opts.controller,
	})
	return ids, translateError(err)
}

func (v *VectorIndex) recordBatch(ctx context.Context, count int, start time.Time, err error) {
	failed := 0
	if err != nil {
		failed = 1
	}
	d := time.Since(start)
	v.metrics.RecordBatchInsert(count, failed, d)
	v.logger.LogBatchInsert(ctx, count, d, err)
}

// Search returns the k vectors closest to query by exhaustive scan, ordered by
// ascending distance with ties broken by ascending id. If the index holds
// fewer than k vectors, all of them are returned.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	v.mu.RLock()
	res, err := bruteforce.Search(v.graph.Vectors(), query, k)
	v.mu.RUnlock()

	err = translateError(err)
	v.metrics.RecordSearch("exact", k, time.Since(start), err)
	v.logger.LogSearch(ctx, "exact", k, len(res), err)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(res))
	for i, r := range res {
		out[i] = SearchResult{ID: r.ID, Distance: r.Distance}
	}
	return out, nil
}

// SearchGraph returns the closest vector found by graph search with beam width ef.
// The result is approximate; larger ef improves recall.
func (v *VectorIndex) SearchGraph(ctx context.Context, query []float32, ef int) (SearchResult, error) {
	res, err := v.SearchGraphK(ctx, query, 1, ef)
	if err != nil {
		return SearchResult{}, err
	}
	return res[0], nil
}

// SearchGraphK returns up to k vectors found by graph search with beam width
// ef, ordered by ascending distance with ties broken by ascending id.
// ef must be at least k.
func (v *VectorIndex) SearchGraphK(ctx context.Context, query []float32, k, ef int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	v.mu.RLock()
	res, err := v.graph.KNNSearch(query, k, ef)
	v.mu.RUnlock()

	err = translateError(err)
	v.metrics.RecordSearch("graph", k, time.Since(start), err)
	v.logger.LogSearch(ctx, "graph", k, len(res), err)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(res))
	for i, r := range res {
		out[i] = SearchResult{ID: r.ID, Distance: r.Distance}
	}
	return out, nil
}

// Vector returns a copy of the vector stored under id.
func (v *VectorIndex) Vector(id uint32) ([]float32, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	vec, err := v.graph.Vectors().Get(id)
	if err != nil {
		return nil, translateError(err)
	}
	return slices.Clone(vec), nil
}

// Len returns the number of vectors in the index.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.graph.Len()
}

// Dimension returns the vector dimension.
func (v *VectorIndex) Dimension() int { return v.graph.Dimension() }

// M returns the maximum degree above layer 0.
func (v *VectorIndex) M() int { return v.graph.M() }

// EFConstruction returns the insertion beam width.
func (v *VectorIndex) EFConstruction() int { return v.graph.EFConstruction() }

// Stats returns graph statistics.
func (v *VectorIndex) Stats() Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.graph.Stats()
}

// Validate checks every structural invariant of the graph.
// Errors wrap ErrInvalidGraph.
func (v *VectorIndex) Validate() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.graph.Validate()
}
