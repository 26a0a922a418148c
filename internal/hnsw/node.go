package hnsw

import (
	"sync"
	"sync/atomic"
)

const (
	// nodeSegmentBits sets the segment size to 65536 nodes.
	// Using segments avoids copying the entire node array during growth.
	nodeSegmentBits = 16
	nodeSegmentSize = 1 << nodeSegmentBits
	nodeSegmentMask = nodeSegmentSize - 1
)

// node holds the adjacency lists of one vector.
// level is immutable once published; links are guarded by the node's shard lock.
type node struct {
	level int
	links [][]uint32
}

func newNode(level int) *node {
	return &node{
		level: level,
		links: make([][]uint32, level+1),
	}
}

// NodeSegment is a fixed-size array of node pointers.
type NodeSegment [nodeSegmentSize]atomic.Pointer[node]

func (g *Graph) node(id uint32) *node {
	segments := g.nodes.Load()
	if segments == nil {
		return nil
	}

	segmentIdx := int(id >> nodeSegmentBits)
	if segmentIdx >= len(*segments) {
		return nil
	}

	return (*segments)[segmentIdx][id&nodeSegmentMask].Load()
}

func (g *Graph) setNode(id uint32, n *node) {
	g.growSegments(id)

	segments := g.nodes.Load()
	(*segments)[int(id>>nodeSegmentBits)][id&nodeSegmentMask].Store(n)
}

// growSegments ensures capacity for the given ID.
// Uses Copy-On-Write (COW) for lock-free growth.
func (g *Graph) growSegments(id uint32) {
	segmentIdx := int(id >> nodeSegmentBits)

	segments := g.nodes.Load()
	if segments != nil && segmentIdx < len(*segments) && (*segments)[segmentIdx] != nil {
		return
	}

	for {
		old := g.nodes.Load()

		currentLen := 0
		if old != nil {
			currentLen = len(*old)
		}
		if segmentIdx < currentLen && (*old)[segmentIdx] != nil {
			return
		}

		next := make([]*NodeSegment, max(segmentIdx+1, currentLen))
		if old != nil {
			copy(next, *old)
		}
		for i := range next {
			if next[i] == nil {
				next[i] = new(NodeSegment)
			}
		}

		if g.nodes.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (g *Graph) lockFor(id uint32) *sync.RWMutex {
	return &g.shardedLocks[id%uint32(len(g.shardedLocks))]
}

// lockPair write-locks the shards of a and b in shard order.
func (g *Graph) lockPair(a, b uint32) func() {
	sa := a % uint32(len(g.shardedLocks))
	sb := b % uint32(len(g.shardedLocks))
	if sa == sb {
		g.shardedLocks[sa].Lock()
		return g.shardedLocks[sa].Unlock
	}
	if sa > sb {
		sa, sb = sb, sa
	}
	g.shardedLocks[sa].Lock()
	g.shardedLocks[sb].Lock()
	return func() {
		g.shardedLocks[sb].Unlock()
		g.shardedLocks[sa].Unlock()
	}
}

// appendLinks appends a snapshot of id's neighbors at layer to dst.
func (g *Graph) appendLinks(dst []uint32, id uint32, layer int) []uint32 {
	n := g.node(id)
	if n == nil || layer > n.level {
		return dst
	}
	l := g.lockFor(id)
	l.RLock()
	dst = append(dst, n.links[layer]...)
	l.RUnlock()
	return dst
}
