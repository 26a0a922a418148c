// Package testutil provides testing utilities for vsearch.
//
// This package is intended for use in tests, examples and benchmarks only.
// It provides helpers for generating random vectors, computing exact
// nearest neighbors, and measuring search recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vec := make([]float32, 128)
//	rng.FillUniform(vec)                     // uniform [0, 1)
//	data := rng.GaussianVectors(1000, 128)   // standard normal
//
// # Exact Search (Ground Truth)
//
//	exact := testutil.BruteForceSearch(data, query, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exact, approx)
package testutil
