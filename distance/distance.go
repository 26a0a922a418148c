package distance

import (
	"golang.org/x/sys/cpu"
)

// Func computes the distance between two vectors of equal length.
type Func func(a, b []float32) float32

// Kernel identifies the implementation selected for SquaredL2.
type Kernel int

const (
	KernelGeneric Kernel = iota
	KernelUnrolled
)

func (k Kernel) String() string {
	switch k {
	case KernelGeneric:
		return "generic"
	case KernelUnrolled:
		return "unrolled"
	default:
		return "unknown"
	}
}

var (
	activeKernel = selectKernel()
	squaredL2    = kernelFunc(activeKernel)
)

func selectKernel() Kernel {
	// Wide vector units keep eight independent accumulators busy.
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
		return KernelUnrolled
	}
	return KernelGeneric
}

func kernelFunc(k Kernel) Func {
	if k == KernelUnrolled {
		return squaredL2Unrolled
	}
	return squaredL2Generic
}

// ActiveKernel reports which kernel SquaredL2 dispatches to.
func ActiveKernel() Kernel {
	return activeKernel
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return squaredL2(a, b)
}

func squaredL2Generic(a, b []float32) float32 {
	b = b[:len(a)]
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func squaredL2Unrolled(a, b []float32) float32 {
	n := len(a)
	b = b[:n]

	var s0, s1, s2, s3, s4, s5, s6, s7 float32
	i := 0
	for ; i+8 <= n; i += 8 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		d4 := a[i+4] - b[i+4]
		d5 := a[i+5] - b[i+5]
		d6 := a[i+6] - b[i+6]
		d7 := a[i+7] - b[i+7]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
		s4 += d4 * d4
		s5 += d5 * d5
		s6 += d6 * d6
		s7 += d7 * d7
	}

	sum := (s0 + s1) + (s2 + s3) + (s4 + s5) + (s6 + s7)
	for ; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
