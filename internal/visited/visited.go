// Package visited tracks which graph nodes a traversal has already expanded.
package visited

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// VisitedSet tracks visited nodes using a bitset and a dirty list for fast reset.
type VisitedSet struct {
	bits  *bitset.BitSet
	dirty []uint32
}

// New creates a new visited set sized for capacity nodes.
func New(capacity int) *VisitedSet {
	return &VisitedSet{
		bits:  bitset.New(uint(capacity)),
		dirty: make([]uint32, 0, 128),
	}
}

// Visit marks a node as visited and reports whether it was unvisited before.
func (v *VisitedSet) Visit(id uint32) bool {
	if v.bits.Test(uint(id)) {
		return false
	}
	v.bits.Set(uint(id))
	v.dirty = append(v.dirty, id)
	return true
}

// Visited returns true if the node has been visited.
func (v *VisitedSet) Visited(id uint32) bool {
	return v.bits.Test(uint(id))
}

// Count returns the number of nodes visited since the last reset.
func (v *VisitedSet) Count() int {
	return len(v.dirty)
}

// Reset clears the visited status for all nodes visited in the current session.
func (v *VisitedSet) Reset() {
	// Sparse sessions clear only what they touched.
	if uint(len(v.dirty)) > v.bits.Len()/64 {
		v.bits.ClearAll()
	} else {
		for _, id := range v.dirty {
			v.bits.Clear(uint(id))
		}
	}
	v.dirty = v.dirty[:0]
}

// Pool recycles visited sets between traversals.
type Pool struct {
	pool sync.Pool
}

// NewPool creates a pool whose fresh sets start with the given capacity.
func NewPool(capacity int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any { return New(capacity) },
		},
	}
}

// Get returns a cleared visited set.
func (p *Pool) Get() *VisitedSet {
	return p.pool.Get().(*VisitedSet)
}

// Put resets v and returns it to the pool.
func (p *Pool) Put(v *VisitedSet) {
	v.Reset()
	p.pool.Put(v)
}
