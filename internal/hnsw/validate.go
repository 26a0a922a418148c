package hnsw

import (
	"fmt"
	"slices"
)

// Validate checks the structural invariants of the graph: every id has a
// node, the entry point sits on the top layer, neighbor lists respect the
// degree bounds, and every edge is unique, in range and symmetric.
// It must not run concurrently with inserts.
func (g *Graph) Validate() error {
	n := g.vectors.Len()
	ep, top, ok := g.EntryPoint()

	if n == 0 {
		if ok {
			return fmt.Errorf("%w: empty graph has entry point %d", ErrInvalidGraph, ep)
		}
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: %d nodes but no entry point", ErrInvalidGraph, n)
	}
	if int(ep) >= n {
		return fmt.Errorf("%w: entry point %d out of range [0, %d)", ErrInvalidGraph, ep, n)
	}
	if lvl := g.Level(ep); lvl != top {
		return fmt.Errorf("%w: entry point %d has level %d, top layer is %d", ErrInvalidGraph, ep, lvl, top)
	}

	var links, back []uint32
	for id := range uint32(n) {
		nd := g.node(id)
		if nd == nil {
			return fmt.Errorf("%w: node %d missing", ErrInvalidGraph, id)
		}
		if nd.level > top {
			return fmt.Errorf("%w: node %d level %d above top layer %d", ErrInvalidGraph, id, nd.level, top)
		}

		for l := 0; l <= nd.level; l++ {
			links = g.appendLinks(links[:0], id, l)
			if len(links) > g.maxConnections(l) {
				return fmt.Errorf("%w: node %d layer %d has %d neighbors, bound is %d", ErrInvalidGraph, id, l, len(links), g.maxConnections(l))
			}

			for i, nb := range links {
				switch {
				case int(nb) >= n:
					return fmt.Errorf("%w: node %d layer %d links to unknown id %d", ErrInvalidGraph, id, l, nb)
				case nb == id:
					return fmt.Errorf("%w: node %d layer %d links to itself", ErrInvalidGraph, id, l)
				case slices.Contains(links[:i], nb):
					return fmt.Errorf("%w: node %d layer %d lists %d twice", ErrInvalidGraph, id, l, nb)
				case g.Level(nb) < l:
					return fmt.Errorf("%w: node %d layer %d links to %d which is absent from the layer", ErrInvalidGraph, id, l, nb)
				}

				back = g.appendLinks(back[:0], nb, l)
				if !slices.Contains(back, id) {
					return fmt.Errorf("%w: edge %d->%d at layer %d has no back-edge", ErrInvalidGraph, id, nb, l)
				}
			}
		}
	}

	return nil
}
