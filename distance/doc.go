// Package distance provides the squared Euclidean distance used by every
// search path in vsearch.
//
// The kernel is chosen once at startup from the CPU feature set reported by
// golang.org/x/sys/cpu. All kernels accumulate in float32 and give the same
// result whichever operand is passed first.
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
package distance
