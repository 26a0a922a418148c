// Package bruteforce answers k-nearest-neighbor queries exactly by scanning
// every vector in a store. It is the reference the approximate graph search
// is measured against.
package bruteforce

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vsearch/distance"
	"github.com/hupe1980/vsearch/internal/queue"
	"github.com/hupe1980/vsearch/internal/vectorstore"
)

var (
	// ErrEmptyIndex is returned when the store holds no vectors.
	ErrEmptyIndex = errors.New("bruteforce: index is empty")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("bruteforce: k must be positive")
)

// Result is a vector id and its squared distance to the query.
type Result struct {
	ID       uint32
	Distance float32
}

// Search returns the min(k, store.Len()) vectors closest to query, ordered by
// ascending distance with ties broken by ascending id.
func Search(store *vectorstore.Store, query []float32, k int) ([]Result, error) {
	if len(query) != store.Dimension() {
		return nil, &vectorstore.ErrDimensionMismatch{Expected: store.Dimension(), Actual: len(query)}
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	n := store.Len()
	if n == 0 {
		return nil, ErrEmptyIndex
	}

	k = min(k, n)
	pq := queue.NewMax(k + 1)
	store.All(func(id uint32, v []float32) bool {
		item := queue.Item{Node: id, Distance: distance.SquaredL2(query, v)}
		if pq.Len() < k {
			pq.Push(item)
			return true
		}
		if worst, _ := pq.Top(); queue.Less(item, worst) {
			pq.Pop()
			pq.Push(item)
		}
		return true
	})

	items := pq.Ascending()
	results := make([]Result, len(items))
	for i, it := range items {
		results[i] = Result{ID: it.Node, Distance: it.Distance}
	}
	return results, nil
}
