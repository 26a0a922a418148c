package hnsw

import (
	"fmt"
	"io"

	"github.com/hupe1980/vsearch/internal/vectorstore"
	"github.com/hupe1980/vsearch/persistence"
)

// Encode writes the graph in the binary index format using compression c.
// The body holds every vector in id order followed by, for each node, its
// level and one length-prefixed neighbor list per layer.
func (g *Graph) Encode(w io.Writer, c persistence.Compression) (int64, error) {
	n := g.vectors.Len()
	dim := g.opts.Dimension

	header := persistence.FileHeader{
		Dimension:      uint32(dim),
		M:              uint32(g.opts.M),
		EFConstruction: uint32(g.opts.EFConstruction),
		EntryPoint:     persistence.NoEntryPoint,
		TopLayer:       -1,
		NodeCount:      uint64(n),
	}
	if ep, top, ok := g.EntryPoint(); ok {
		header.EntryPoint = ep
		header.TopLayer = int32(top)
	}

	bw := persistence.NewBodyWriter(n*dim*4 + n*(8+4*g.maxConnectionsLayer0))
	g.vectors.All(func(_ uint32, v []float32) bool {
		bw.PutFloat32Slice(v)
		return true
	})

	var buf []uint32
	for id := range uint32(n) {
		nd := g.node(id)
		if nd == nil {
			return 0, fmt.Errorf("%w: node %d is not linked", ErrInvalidGraph, id)
		}
		bw.PutUint32(uint32(nd.level))
		for l := 0; l <= nd.level; l++ {
			buf = g.appendLinks(buf[:0], id, l)
			bw.PutUint32(uint32(len(buf)))
			bw.PutUint32Slice(buf)
		}
	}

	return persistence.WriteFile(w, header, bw.Bytes(), c)
}

// WriteTo writes the graph uncompressed. It implements io.WriterTo.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	return g.Encode(w, persistence.CompressionNone)
}

// ReadFrom decodes a graph written by Encode. Dimension, M and EFConstruction
// are taken from the file; optFns may only set the random source. The source
// is advanced past one draw per stored node, so a graph built and reloaded
// with the same seed keeps assigning the same levels.
// Any structural inconsistency is reported as persistence.ErrCorrupt.
func ReadFrom(r io.Reader, optFns ...func(o *Options)) (*Graph, error) {
	header, body, err := persistence.ReadFile(r)
	if err != nil {
		return nil, err
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Dimension = int(header.Dimension)
	opts.M = int(header.M)
	opts.EFConstruction = int(header.EFConstruction)

	dim := uint64(header.Dimension)
	if header.NodeCount > uint64(len(body))/(4*dim) {
		return nil, persistence.Corruptf("%d vectors of dimension %d exceed body of %d bytes", header.NodeCount, dim, len(body))
	}
	n := int(header.NodeCount)

	store, err := vectorstore.NewWithCapacity(opts.Dimension, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", persistence.ErrCorrupt, err)
	}
	g := newGraph(opts, store)

	sr := persistence.NewSliceReader(body)
	vec := make([]float32, opts.Dimension)
	for range n {
		if err := sr.ReadFloat32SliceInto(vec); err != nil {
			return nil, err
		}
		if _, err := store.Append(vec); err != nil {
			return nil, fmt.Errorf("%w: %w", persistence.ErrCorrupt, err)
		}
	}

	for id := range uint32(n) {
		level, err := sr.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int64(level) > int64(header.TopLayer) {
			return nil, persistence.Corruptf("node %d level %d exceeds top layer %d", id, level, header.TopLayer)
		}

		nd := newNode(int(level))
		for l := 0; l <= int(level); l++ {
			count, err := sr.ReadUint32()
			if err != nil {
				return nil, err
			}
			if uint64(count) > uint64(g.maxConnections(l)) {
				return nil, persistence.Corruptf("node %d layer %d has %d neighbors, bound is %d", id, l, count, g.maxConnections(l))
			}
			links, err := sr.ReadUint32Slice(int(count))
			if err != nil {
				return nil, err
			}
			nd.links[l] = links
		}
		g.setNode(id, nd)
	}

	if sr.Remaining() != 0 {
		return nil, persistence.Corruptf("%d trailing bytes after graph", sr.Remaining())
	}

	if n > 0 {
		g.entryPoint = header.EntryPoint
		g.topLevel = int(header.TopLayer)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", persistence.ErrCorrupt, err)
	}

	// Every stored node consumed one level draw.
	g.levels.skip(n)

	return g, nil
}
