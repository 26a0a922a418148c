package hnsw

import (
	"cmp"
	"slices"

	"github.com/hupe1980/vsearch/distance"
	"github.com/hupe1980/vsearch/internal/queue"
)

func (g *Graph) maxConnections(layer int) int {
	if layer == 0 {
		return g.maxConnectionsLayer0
	}
	return g.maxConnectionsPerLayer
}

// connect links id and nb at layer in both directions.
// Both lists are mutated under the pair lock; back-edges of evicted
// neighbors are removed after the pair is released.
func (g *Graph) connect(id, nb uint32, layer int) {
	a, b := g.node(id), g.node(nb)
	if a == nil || b == nil || layer > a.level || layer > b.level {
		return
	}

	var evictedA, evictedB []uint32

	unlock := g.lockPair(id, nb)
	if !slices.Contains(a.links[layer], nb) {
		var keptB bool
		keptB, evictedA = g.addLinkLocked(id, a, nb, layer)
		if keptB {
			var keptA bool
			keptA, evictedB = g.addLinkLocked(nb, b, id, layer)
			if !keptA {
				a.links[layer] = removeID(a.links[layer], nb)
			}
		}
	}
	unlock()

	for _, e := range evictedA {
		g.removeLink(e, id, layer)
	}
	for _, e := range evictedB {
		g.removeLink(e, nb, layer)
	}
}

// addLinkLocked adds target to owner's list at layer, pruning with the
// neighbor heuristic if the list overflows. It reports whether target was
// kept and which previous neighbors were evicted. Adding an existing
// neighbor is a no-op.
// The caller must hold owner's shard lock.
func (g *Graph) addLinkLocked(ownerID uint32, owner *node, target uint32, layer int) (bool, []uint32) {
	links := owner.links[layer]
	// The edge may survive from an eviction whose removeLink has not run yet.
	if slices.Contains(links, target) {
		return true, nil
	}
	bound := g.maxConnections(layer)
	if len(links) < bound {
		owner.links[layer] = append(links, target)
		return true, nil
	}

	ov := g.vectors.At(ownerID)
	candidates := make([]queue.Item, 0, len(links)+1)
	for _, l := range links {
		candidates = append(candidates, queue.Item{Node: l, Distance: g.dist(ov, l)})
	}
	candidates = append(candidates, queue.Item{Node: target, Distance: g.dist(ov, target)})
	slices.SortFunc(candidates, compareItems)

	selected := g.selectNeighbors(candidates, bound)

	var evicted []uint32
	for _, l := range links {
		if !slices.Contains(selected, l) {
			evicted = append(evicted, l)
		}
	}
	owner.links[layer] = selected
	return slices.Contains(selected, target), evicted
}

// removeLink removes neighborID from id's list at layer unless neighborID
// links back to id.
func (g *Graph) removeLink(id, neighborID uint32, layer int) {
	n, m := g.node(id), g.node(neighborID)
	if n == nil || m == nil || layer > n.level || layer > m.level {
		return
	}

	unlock := g.lockPair(id, neighborID)
	defer unlock()

	if slices.Contains(m.links[layer], id) {
		return
	}
	n.links[layer] = removeID(n.links[layer], neighborID)
}

// selectNeighbors picks up to m ids from candidates (closest first).
// A candidate is kept only if it is closer to the base than to every kept
// candidate; remaining slots are filled in distance order.
func (g *Graph) selectNeighbors(candidates []queue.Item, m int) []uint32 {
	if len(candidates) <= m {
		res := make([]uint32, len(candidates))
		for i, c := range candidates {
			res[i] = c.Node
		}
		return res
	}

	result := make([]uint32, 0, m)
	resultVecs := make([][]float32, 0, m)

	for _, cand := range candidates {
		if len(result) >= m {
			break
		}

		candVec := g.vectors.At(cand.Node)
		good := true
		for _, resVec := range resultVecs {
			if distance.SquaredL2(candVec, resVec) < cand.Distance {
				good = false
				break
			}
		}

		if good {
			result = append(result, cand.Node)
			resultVecs = append(resultVecs, candVec)
		}
	}

	// Fill up if needed
	for _, cand := range candidates {
		if len(result) >= m {
			break
		}
		if !slices.Contains(result, cand.Node) {
			result = append(result, cand.Node)
		}
	}

	return result
}

func compareItems(a, b queue.Item) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.Node, b.Node)
}

// removeID deletes the first occurrence of id, preserving order.
func removeID(s []uint32, id uint32) []uint32 {
	if i := slices.Index(s, id); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
