package vsearch

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vsearch/resource"
	"github.com/hupe1980/vsearch/testutil"
)

func newTestIndex(t *testing.T, dim int, optFns ...Option) *VectorIndex {
	t.Helper()
	idx, err := New(dim, append([]Option{WithSeed(42)}, optFns...)...)
	require.NoError(t, err)
	return idx
}

func ids(res []SearchResult) []uint32 {
	out := make([]uint32, len(res))
	for i, r := range res {
		out[i] = r.ID
	}
	return out
}

func TestNew(t *testing.T) {
	idx, err := New(16)
	require.NoError(t, err)
	assert.Equal(t, 16, idx.Dimension())
	assert.Equal(t, DefaultM, idx.M())
	assert.Equal(t, DefaultEFConstruction, idx.EFConstruction())
	assert.Equal(t, 0, idx.Len())

	tests := []struct {
		name string
		dim  int
		opts []Option
	}{
		{"zero dimension", 0, nil},
		{"negative dimension", -3, nil},
		{"zero M", 4, []Option{WithM(0)}},
		{"zero efConstruction", 4, []Option{WithEFConstruction(0)}},
		{"negative workers", 4, []Option{WithWorkers(-1)}},
		{"unknown compression", 4, []Option{WithCompression(Compression(99))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.dim, tc.opts...)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestSearch_Scenario(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 4)

	for i, v := range [][]float32{{0, 0, 0, 0}, {1, 1, 1, 1}, {0, 0, 0, 0.1}} {
		id, err := idx.Add(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), id)
	}

	query := []float32{0, 0, 0, 0.05}

	exact, err := idx.Search(ctx, query, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2, 1}, ids(exact))
	assert.Equal(t, exact[0].Distance, exact[1].Distance)
	assert.Less(t, exact[1].Distance, exact[2].Distance)

	approx, err := idx.SearchGraphK(ctx, query, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, exact, approx)

	best, err := idx.SearchGraph(ctx, query, 10)
	require.NoError(t, err)
	assert.Equal(t, exact[0], best)

	// k larger than the index returns everything.
	all, err := idx.Search(ctx, query, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 3)

	_, err := idx.Search(ctx, []float32{0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	_, err = idx.SearchGraph(ctx, []float32{0, 0, 0}, 4)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	_, err = idx.Add(ctx, []float32{1, 2, 3})
	require.NoError(t, err)

	_, err = idx.Search(ctx, []float32{1, 2}, 1)
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)

	_, err = idx.SearchGraph(ctx, []float32{1, 2, 3, 4}, 4)
	assert.ErrorAs(t, err, &dimErr)

	_, err = idx.Search(ctx, []float32{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = idx.SearchGraph(ctx, []float32{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = idx.SearchGraphK(ctx, []float32{1, 2, 3}, 5, 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = idx.Search(canceled, []float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchGraph_UnboundedEF(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 2)

	_, err := idx.AddParallel(ctx, [][]float32{{0, 0}, {3, 4}})
	require.NoError(t, err)

	best, err := idx.SearchGraph(ctx, []float32{3, 3}, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), best.ID)

	res, err := idx.SearchGraphK(ctx, []float32{0, 0}, math.MaxInt, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, ids(res))
}

func TestAdd_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, 4)

	_, err := idx.Add(context.Background(), []float32{1, 2, 3})
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)
	assert.Equal(t, 0, idx.Len())
}

func TestAddParallel_SelfSearch(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(7)
	vecs := rng.UniformVectors(500, 8)

	for _, workers := range []int{1, 4, 16} {
		idx := newTestIndex(t, 8, WithWorkers(workers), WithM(8), WithEFConstruction(64))

		got, err := idx.AddParallel(ctx, vecs)
		require.NoError(t, err)
		require.Len(t, got, len(vecs))
		require.NoError(t, idx.Validate())

		for i, id := range got {
			v, err := idx.Vector(id)
			require.NoError(t, err)
			assert.Equal(t, vecs[i], v)

			res, err := idx.Search(ctx, vecs[i], 1)
			require.NoError(t, err)
			assert.Equal(t, float32(0), res[0].Distance)
		}
	}
}

func TestAddParallel_BatchError(t *testing.T) {
	idx := newTestIndex(t, 2, WithWorkers(1))

	got, err := idx.AddParallel(context.Background(), [][]float32{{1, 1}, {2, 2}, {3}, {4, 4}})
	assert.Nil(t, got)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Index)

	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
	require.NoError(t, idx.Validate())
}

func TestAddChunked(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(3)
	vecs := rng.UniformVectors(250, 4)

	idx := newTestIndex(t, 4, WithWorkers(2))

	var calls [][2]int
	got, err := idx.AddChunked(ctx, vecs, 100, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	require.Len(t, got, 250)
	assert.Equal(t, [][2]int{{100, 250}, {200, 250}, {250, 250}}, calls)
	assert.Equal(t, 250, idx.Len())
	require.NoError(t, idx.Validate())

	_, err = idx.AddChunked(ctx, vecs, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// Default chunk size, no progress callback.
	got, err = idx.AddChunked(ctx, vecs[:10], 0, nil)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestAddChunked_BatchErrorOffset(t *testing.T) {
	idx := newTestIndex(t, 2, WithWorkers(1))

	vecs := [][]float32{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}, {7}}
	_, err := idx.AddChunked(context.Background(), vecs, 3, nil)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 7, batchErr.Index)
	assert.Equal(t, 7, idx.Len())
}

func TestVector(t *testing.T) {
	idx := newTestIndex(t, 2)

	id, err := idx.Add(context.Background(), []float32{1, 2})
	require.NoError(t, err)

	v, err := idx.Vector(id)
	require.NoError(t, err)
	v[0] = 99

	again, err := idx.Vector(id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, again)

	_, err = idx.Vector(5)
	var idErr *ErrInvalidID
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, uint32(5), idErr.ID)
	assert.Equal(t, 1, idErr.Len)
}

func TestStatsAndValidate(t *testing.T) {
	idx := newTestIndex(t, 4)

	assert.Equal(t, 0, idx.Stats().Nodes)
	assert.NoError(t, idx.Validate())

	_, err := idx.AddParallel(context.Background(), testutil.NewRNG(1).UniformVectors(200, 4))
	require.NoError(t, err)

	stats := idx.Stats()
	assert.Equal(t, 200, stats.Nodes)
	assert.Equal(t, 200, stats.Reachable)
	assert.Zero(t, stats.AsymmetricEdges)
	require.NotEmpty(t, stats.Levels)
	assert.Equal(t, 200, stats.Levels[0].Nodes)
	assert.NoError(t, idx.Validate())
}

func TestSearchGraphK_Recall(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(11)
	data := rng.UniformVectors(2000, 16)

	idx := newTestIndex(t, 16, WithM(16), WithEFConstruction(200))
	_, err := idx.AddParallel(ctx, data)
	require.NoError(t, err)

	var total float64
	queries := rng.UniformVectors(50, 16)
	for _, q := range queries {
		res, err := idx.SearchGraphK(ctx, q, 10, 100)
		require.NoError(t, err)

		approx := make([]testutil.SearchResult, len(res))
		for i, r := range res {
			approx[i] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
		}
		total += testutil.ComputeRecall(testutil.BruteForceSearch(data, q, 10), approx)
	}

	assert.GreaterOrEqual(t, total/float64(len(queries)), 0.9)
}

func TestConcurrentAddAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 8)
	rng := testutil.NewRNG(5)

	_, err := idx.Add(ctx, rng.UniformVectors(1, 8)[0])
	require.NoError(t, err)

	writers := rng.UniformVectors(400, 8)
	queries := rng.UniformVectors(100, 8)

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	for w := range 2 {
		wg.Add(1)
		go func(part [][]float32) {
			defer wg.Done()
			for _, v := range part {
				if _, err := idx.Add(ctx, v); err != nil {
					errCh <- err
					return
				}
			}
		}(writers[w*200 : (w+1)*200])
	}

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, q := range queries {
				if _, err := idx.SearchGraphK(ctx, q, 5, 32); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	assert.Equal(t, 401, idx.Len())
	assert.NoError(t, idx.Validate())
}

func TestResourceController_LimitsBatch(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxWorkers: 2, MemoryLimitBytes: 1 << 20})
	idx := newTestIndex(t, 4, WithWorkers(8), WithResourceController(rc))

	got, err := idx.AddParallel(context.Background(), testutil.NewRNG(9).UniformVectors(300, 4))
	require.NoError(t, err)
	assert.Len(t, got, 300)
	assert.Zero(t, rc.MemoryUsage())
	require.NoError(t, idx.Validate())
}

func TestMetricsCollector(t *testing.T) {
	ctx := context.Background()
	mc := &BasicMetricsCollector{}
	idx := newTestIndex(t, 2, WithMetricsCollector(mc))

	_, err := idx.Add(ctx, []float32{0, 0})
	require.NoError(t, err)
	_, err = idx.Add(ctx, []float32{0})
	require.Error(t, err)
	_, err = idx.AddParallel(ctx, [][]float32{{1, 1}, {2, 2}})
	require.NoError(t, err)
	_, err = idx.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	_, err = idx.SearchGraph(ctx, []float32{0, 0}, 0)
	require.Error(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.InsertCount)
	assert.Equal(t, int64(1), stats.InsertErrors)
	assert.Equal(t, int64(1), stats.BatchInsertCount)
	assert.Equal(t, int64(2), stats.BatchInsertItems)
	assert.Zero(t, stats.BatchInsertFailed)
	assert.Equal(t, int64(2), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchErrors)
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	other := errors.New("other")
	assert.Equal(t, other, translateError(other))

	assert.ErrorIs(t, translatePersistError(other), ErrIO)
	assert.ErrorIs(t, translatePersistError(context.Canceled), context.Canceled)
	assert.NotErrorIs(t, translatePersistError(context.Canceled), ErrIO)

	once := translatePersistError(other)
	assert.Equal(t, once, translatePersistError(once))
}
