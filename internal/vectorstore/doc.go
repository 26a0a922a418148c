// Package vectorstore provides the append-only arena that owns every vector
// of an index.
//
// # Architecture
//
// Vectors are stored contiguously in fixed-size segments of float32 values.
// Ids are dense and assigned from an atomic counter, so the id of a vector is
// its position in the arena. Growing the arena publishes a new segment
// directory with a compare-and-swap and never moves existing vectors, which
// keeps slices returned by Get valid for the lifetime of the store.
//
// # Usage
//
//	store, _ := vectorstore.New(128)
//	id, _ := store.Append(vec)
//	v, _ := store.Get(id)
//
// # Concurrency
//
// Append is safe for concurrent use. A vector may be read by other goroutines
// once the Append that stored it has returned and that fact has been
// published to the reader (for example through a mutex).
package vectorstore
