// Package hnsw implements Hierarchical Navigable Small World graphs.
//
// HNSW provides approximate nearest neighbor search with high recall and
// sub-linear query time over squared Euclidean distance.
//
// # Features
//
//   - Sharded per-node locks for concurrent batch insertion
//   - Relative-neighborhood neighbor selection with distance-order fill-up
//   - Symmetric edges: every prune removes the matching back-edge
//   - Pluggable random source for reproducible layer assignment
//   - Versioned binary encoding with structural validation on decode
//
// # Parameters
//
//   - M: Max connections per node above layer 0 (2*M at layer 0, default: 16)
//   - EFConstruction: Beam width while inserting (default: 200)
//   - ef: Beam width while searching, chosen per query
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
