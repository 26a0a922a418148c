package bruteforce

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/hupe1980/vsearch/distance"
	"github.com/hupe1980/vsearch/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, dim int, vectors ...[]float32) *vectorstore.Store {
	t.Helper()
	s, err := vectorstore.New(dim)
	require.NoError(t, err)
	for _, v := range vectors {
		_, err := s.Append(v)
		require.NoError(t, err)
	}
	return s
}

func TestSearch_Scenario(t *testing.T) {
	s := newStore(t, 4,
		[]float32{0, 0, 0, 0},
		[]float32{1, 1, 1, 1},
		[]float32{0, 0, 0, 0.1},
	)

	res, err := Search(s, []float32{0, 0, 0, 0.05}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, uint32(0), res[0].ID)
	assert.Equal(t, uint32(2), res[1].ID)
	assert.Equal(t, uint32(1), res[2].ID)
	assert.Equal(t, res[0].Distance, res[1].Distance)
	assert.InDelta(t, 3.9025, res[2].Distance, 1e-5)
}

func TestSearch_Truncates(t *testing.T) {
	s := newStore(t, 1, []float32{3}, []float32{1}, []float32{2})

	res, err := Search(s, []float32{0}, 10)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []uint32{1, 2, 0}, []uint32{res[0].ID, res[1].ID, res[2].ID})

	res, err = Search(s, []float32{0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(1), res[0].ID)
}

func TestSearch_Errors(t *testing.T) {
	empty := newStore(t, 2)
	_, err := Search(empty, []float32{0, 0}, 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	s := newStore(t, 2, []float32{1, 1})
	_, err = Search(s, []float32{0}, 1)
	var dm *vectorstore.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)

	_, err = Search(s, []float32{0, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearch_MatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const dim, n = 8, 500

	s := newStore(t, dim)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		_, err := s.Append(v)
		require.NoError(t, err)
	}

	q := make([]float32, dim)
	for j := range q {
		q[j] = rng.Float32()
	}

	type pair struct {
		id uint32
		d  float32
	}
	all := make([]pair, n)
	for i := 0; i < n; i++ {
		all[i] = pair{uint32(i), distance.SquaredL2(q, s.At(uint32(i)))}
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].d != all[b].d {
			return all[a].d < all[b].d
		}
		return all[a].id < all[b].id
	})

	res, err := Search(s, q, 25)
	require.NoError(t, err)
	for i, r := range res {
		assert.Equal(t, all[i].id, r.ID)
		assert.Equal(t, all[i].d, r.Distance)
	}
}
