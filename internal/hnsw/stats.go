package hnsw

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Stats returns per-layer statistics and layer-0 reachability from the
// entry point.
func (g *Graph) Stats() Stats {
	n := g.vectors.Len()
	ep, top, ok := g.EntryPoint()

	s := Stats{
		Nodes:          n,
		Dimension:      g.opts.Dimension,
		M:              g.maxConnectionsPerLayer,
		M0:             g.maxConnectionsLayer0,
		EFConstruction: g.opts.EFConstruction,
		EntryPoint:     ep,
		TopLevel:       top,
	}
	if !ok {
		return s
	}

	s.Levels = make([]LevelStats, top+1)
	for l := range s.Levels {
		s.Levels[l].Level = l
	}

	var links, back []uint32
	for id := range uint32(n) {
		nd := g.node(id)
		if nd == nil {
			continue
		}
		for l := 0; l <= nd.level && l <= top; l++ {
			links = g.appendLinks(links[:0], id, l)
			s.Levels[l].Nodes++
			s.Levels[l].Connections += len(links)
			for _, nb := range links {
				back = g.appendLinks(back[:0], nb, l)
				if !slices.Contains(back, id) {
					s.AsymmetricEdges++
				}
			}
		}
	}

	for l := range s.Levels {
		if s.Levels[l].Nodes > 0 {
			s.Levels[l].AvgDegree = float64(s.Levels[l].Connections) / float64(s.Levels[l].Nodes)
		}
	}

	s.Reachable = int(g.reachable(ep).GetCardinality())
	return s
}

// reachable returns the set of nodes reachable from start over layer 0 edges.
func (g *Graph) reachable(start uint32) *roaring.Bitmap {
	seen := roaring.New()
	seen.Add(start)

	frontier := []uint32{start}
	var buf []uint32
	for len(frontier) > 0 {
		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		buf = g.appendLinks(buf[:0], id, 0)
		for _, nb := range buf {
			if seen.CheckedAdd(nb) {
				frontier = append(frontier, nb)
			}
		}
	}
	return seen
}
