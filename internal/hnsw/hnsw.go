package hnsw

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vsearch/distance"
	"github.com/hupe1980/vsearch/internal/queue"
	"github.com/hupe1980/vsearch/internal/vectorstore"
	"github.com/hupe1980/vsearch/internal/visited"
)

// Graph represents the Hierarchical Navigable Small World graph.
type Graph struct {
	opts    Options
	vectors *vectorstore.Store

	// Node storage: segmented array of node pointers indexed by id
	nodes atomic.Pointer[[]*NodeSegment]

	// Sharded locks for neighbor list updates
	shardedLocks []sync.RWMutex

	// Protects entryPoint and topLevel
	epMu       sync.RWMutex
	entryPoint uint32
	topLevel   int

	levels *levelGenerator

	maxConnectionsPerLayer int
	maxConnectionsLayer0   int

	visitedPool *visited.Pool
}

// New creates a new, empty Graph.
func New(optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	store, err := vectorstore.New(opts.Dimension)
	if err != nil {
		return nil, err
	}

	return newGraph(opts, store), nil
}

func newGraph(opts Options, store *vectorstore.Store) *Graph {
	return &Graph{
		opts:                   opts,
		vectors:                store,
		shardedLocks:           make([]sync.RWMutex, 1024),
		topLevel:               -1,
		levels:                 newLevelGenerator(opts.M, opts.Source, opts.RandomSeed),
		maxConnectionsPerLayer: opts.M,
		maxConnectionsLayer0:   mmax0Multiplier * opts.M,
		visitedPool:            visited.NewPool(1024),
	}
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return g.vectors.Len() }

// Dimension returns the vector dimension.
func (g *Graph) Dimension() int { return g.opts.Dimension }

// M returns the per-layer degree bound above layer 0.
func (g *Graph) M() int { return g.opts.M }

// EFConstruction returns the insertion beam width.
func (g *Graph) EFConstruction() int { return g.opts.EFConstruction }

// Vectors returns the store backing the graph.
func (g *Graph) Vectors() *vectorstore.Store { return g.vectors }

// EntryPoint returns the entry point and the top layer, or ok=false if the graph is empty.
func (g *Graph) EntryPoint() (id uint32, level int, ok bool) {
	g.epMu.RLock()
	defer g.epMu.RUnlock()
	if g.topLevel < 0 {
		return 0, -1, false
	}
	return g.entryPoint, g.topLevel, true
}

// Level returns the top layer of node id, or -1 if id has no node.
func (g *Graph) Level(id uint32) int {
	n := g.node(id)
	if n == nil {
		return -1
	}
	return n.level
}

// Neighbors returns a copy of id's neighbor list at layer.
func (g *Graph) Neighbors(id uint32, layer int) []uint32 {
	return g.appendLinks(nil, id, layer)
}

// Insert stores v and links it into the graph.
// It is safe to call concurrently with other inserts.
func (g *Graph) Insert(v []float32) (uint32, error) {
	id, err := g.vectors.Append(v)
	if err != nil {
		return 0, err
	}
	vec := g.vectors.At(id)

	level := g.levels.next()
	g.setNode(id, newNode(level))

	g.epMu.Lock()
	if g.topLevel < 0 {
		g.entryPoint = id
		g.topLevel = level
		g.epMu.Unlock()
		return id, nil
	}
	ep, top := g.entryPoint, g.topLevel
	g.epMu.Unlock()

	g.insertNode(id, vec, level, ep, top)

	if level > top {
		g.epMu.Lock()
		if level > g.topLevel {
			g.entryPoint = id
			g.topLevel = level
		}
		g.epMu.Unlock()
	}

	return id, nil
}

// insertNode performs the graph traversal and linking.
func (g *Graph) insertNode(id uint32, vec []float32, level int, ep uint32, top int) {
	curr := queue.Item{Node: ep, Distance: g.dist(vec, ep)}

	// 1. Greedy descent through the layers above the node's level
	for l := top; l > level; l-- {
		curr = g.greedy(vec, curr, l)
	}

	// 2. Search and link from the node's level down to 0
	entries := []queue.Item{curr}
	for l := min(level, top); l >= 0; l-- {
		candidates := g.searchLayer(vec, entries, g.opts.EFConstruction, l)
		candidates = slices.DeleteFunc(candidates, func(it queue.Item) bool { return it.Node == id })

		neighbors := g.selectNeighbors(candidates, g.maxConnections(l))
		for _, nb := range neighbors {
			g.connect(id, nb, l)
		}

		if len(candidates) > 0 {
			entries = candidates
		}
	}
}

// greedy walks layer from curr, moving to the best improving neighbor until none is closer.
func (g *Graph) greedy(q []float32, curr queue.Item, layer int) queue.Item {
	var buf []uint32
	for {
		buf = g.appendLinks(buf[:0], curr.Node, layer)
		best := curr
		for _, nb := range buf {
			if d := g.dist(q, nb); d < best.Distance {
				best = queue.Item{Node: nb, Distance: d}
			}
		}
		if best.Node == curr.Node {
			return curr
		}
		curr = best
	}
}

// searchLayer runs a beam search bounded by ef at one layer and returns the
// best results closest first.
func (g *Graph) searchLayer(q []float32, entries []queue.Item, ef int, layer int) []queue.Item {
	vis := g.visitedPool.Get()
	defer g.visitedPool.Put(vis)

	// ef may exceed the graph size; never preallocate more than it holds.
	capacity := min(ef, g.vectors.Len()) + 1
	candidates := queue.NewMin(capacity) // closest unexpanded first
	results := queue.NewMax(capacity)    // worst kept result on top

	for _, e := range entries {
		if !vis.Visit(e.Node) {
			continue
		}
		candidates.Push(e)
		results.Push(e)
		if results.Len() > ef {
			_, _ = results.Pop()
		}
	}

	var buf []uint32
	for candidates.Len() > 0 {
		curr, _ := candidates.Pop()

		if worst, _ := results.Top(); results.Len() >= ef && queue.Less(worst, curr) {
			break
		}

		buf = g.appendLinks(buf[:0], curr.Node, layer)
		for _, nb := range buf {
			if !vis.Visit(nb) {
				continue
			}

			item := queue.Item{Node: nb, Distance: g.dist(q, nb)}
			if results.Len() < ef {
				candidates.Push(item)
				results.Push(item)
				continue
			}
			if worst, _ := results.Top(); queue.Less(item, worst) {
				candidates.Push(item)
				results.Push(item)
				_, _ = results.Pop()
			}
		}
	}

	return results.Ascending()
}

// KNNSearch returns the k nearest nodes found by a beam search of width ef,
// ordered by ascending distance with ties broken by ascending id.
func (g *Graph) KNNSearch(q []float32, k, ef int) ([]SearchResult, error) {
	if len(q) != g.opts.Dimension {
		return nil, &vectorstore.ErrDimensionMismatch{Expected: g.opts.Dimension, Actual: len(q)}
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidParameter, k)
	}
	if ef < 1 {
		return nil, fmt.Errorf("%w: ef must be positive, got %d", ErrInvalidParameter, ef)
	}
	if ef < k {
		return nil, fmt.Errorf("%w: ef (%d) must be at least k (%d)", ErrInvalidParameter, ef, k)
	}

	ep, top, ok := g.EntryPoint()
	if !ok {
		return nil, ErrEmptyIndex
	}

	curr := queue.Item{Node: ep, Distance: g.dist(q, ep)}
	for l := top; l > 0; l-- {
		curr = g.greedy(q, curr, l)
	}

	items := g.searchLayer(q, []queue.Item{curr}, ef, 0)
	if len(items) > k {
		items = items[:k]
	}

	res := make([]SearchResult, len(items))
	for i, it := range items {
		res[i] = SearchResult{ID: it.Node, Distance: it.Distance}
	}
	return res, nil
}

// Search returns the single best node found by a beam search of width ef.
func (g *Graph) Search(q []float32, ef int) (SearchResult, error) {
	res, err := g.KNNSearch(q, 1, ef)
	if err != nil {
		return SearchResult{}, err
	}
	return res[0], nil
}

// dist computes distance between vector and node ID.
func (g *Graph) dist(v []float32, id uint32) float32 {
	return distance.SquaredL2(v, g.vectors.At(id))
}
