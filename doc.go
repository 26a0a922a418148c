// Package vsearch provides an embeddable approximate nearest-neighbor index for Go.
//
// An index stores fixed-dimension float32 vectors under dense ids starting at
// 0 and answers k-nearest-neighbor queries under squared Euclidean distance.
// Queries can run exactly, by scanning every vector, or approximately, over a
// Hierarchical Navigable Small World (HNSW) graph.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := vsearch.New(128, vsearch.WithM(16), vsearch.WithEFConstruction(200))
//
//	id, _ := idx.Add(ctx, vector)
//	ids, _ := idx.AddParallel(ctx, vectors)
//
//	exact, _ := idx.Search(ctx, query, 10)            // brute force
//	approx, _ := idx.SearchGraphK(ctx, query, 10, 64) // HNSW, ef=64
//
// # Insert Modes
//
//	// 1. SINGLE INSERT: one vector, searchable immediately.
//	id, _ := idx.Add(ctx, vector)
//
//	// 2. PARALLEL INSERT: a batch linked by a worker pool.
//	ids, _ := idx.AddParallel(ctx, vectors)
//
//	// 3. CHUNKED INSERT: large loads in bounded batches with progress.
//	ids, _ := idx.AddChunked(ctx, vectors, 5000, func(done, total int) {
//	    fmt.Printf("%d/%d\n", done, total)
//	})
//
// Parallel inserts build a valid graph with the same recall characteristics
// as sequential inserts, but not an identical one.
//
// # Persistence
//
//	idx.Save("products.vsh")
//	idx, _ = vsearch.Load("products.vsh")
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("indexes/"))
//	idx.SaveTo(ctx, store, "products.vsh")
//	idx, _ = vsearch.LoadFrom(ctx, store, "products.vsh")
//
// Files carry a checksum and optional LZ4 or Zstd compression. Loading
// validates the whole graph; malformed files fail with ErrCorruptFile.
//
// # Concurrency
//
// Inserts take an exclusive lock while searches share a read lock, so a
// VectorIndex can be used from many goroutines. An optional
// resource.Controller caps batch workers and save/load throughput across
// indexes.
package vsearch
