package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

const (
	// maxSegmentVectors caps the vectors per segment for small dimensions.
	maxSegmentVectors = 4096
	// segmentBytes is the allocation budget of one segment.
	segmentBytes = 4 << 20
)

// segmentVectors returns how many vectors of length dim fit one segment.
func segmentVectors(dim int) uint32 {
	return uint32(min(maxSegmentVectors, max(1, segmentBytes/(4*dim))))
}

// ErrCapacityExceeded is returned when the id space is exhausted.
var ErrCapacityExceeded = errors.New("vector store capacity exceeded")

// ErrInvalidDimension indicates a non-positive store dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrDimensionMismatch indicates a vector whose length differs from the store dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidID indicates an id that has not been assigned.
type ErrInvalidID struct {
	ID  uint32
	Len int
}

func (e *ErrInvalidID) Error() string {
	return fmt.Sprintf("invalid id %d: store holds %d vectors", e.ID, e.Len)
}

type segment struct {
	data []float32
}

// Store is an append-only, segmented arena of fixed-dimension vectors.
type Store struct {
	dim        int
	perSegment uint32
	count    atomic.Uint32
	segments atomic.Pointer[[]*segment]
}

// New creates an empty store for vectors of length dim.
func New(dim int) (*Store, error) {
	if dim < 1 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}
	return &Store{dim: dim, perSegment: segmentVectors(dim)}, nil
}

// NewWithCapacity creates a store with segments preallocated for n vectors.
func NewWithCapacity(dim, n int) (*Store, error) {
	s, err := New(dim)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.growSegments(uint32(n - 1))
	}
	return s, nil
}

// Dimension returns the vector length of the store.
func (s *Store) Dimension() int {
	return s.dim
}

// Len returns the number of assigned ids.
func (s *Store) Len() int {
	return int(s.count.Load())
}

// Append copies v into the arena and returns its id.
// The length is validated before an id is reserved.
func (s *Store) Append(v []float32) (uint32, error) {
	if len(v) != s.dim {
		return 0, &ErrDimensionMismatch{Expected: s.dim, Actual: len(v)}
	}

	var id uint32
	for {
		n := s.count.Load()
		if n == math.MaxUint32 {
			return 0, ErrCapacityExceeded
		}
		if s.count.CompareAndSwap(n, n+1) {
			id = n
			break
		}
	}

	s.growSegments(id)
	copy(s.slot(id), v)
	return id, nil
}

// Get returns the vector stored under id.
// The returned slice aliases the arena and must not be modified.
func (s *Store) Get(id uint32) ([]float32, error) {
	if n := s.Len(); int(id) >= n {
		return nil, &ErrInvalidID{ID: id, Len: n}
	}
	return s.slot(id), nil
}

// At returns the vector stored under id without bounds checking against Len.
// Callers must only pass ids obtained from this store.
func (s *Store) At(id uint32) []float32 {
	return s.slot(id)
}

// All calls yield for every vector in id order until yield returns false.
func (s *Store) All(yield func(id uint32, v []float32) bool) {
	n := uint32(s.Len())
	for id := uint32(0); id < n; id++ {
		if !yield(id, s.slot(id)) {
			return
		}
	}
}

func (s *Store) slot(id uint32) []float32 {
	segs := *s.segments.Load()
	seg := segs[id/s.perSegment]
	off := int(id%s.perSegment) * s.dim
	return seg.data[off : off+s.dim : off+s.dim]
}

// growSegments ensures a segment exists for the given id.
// The directory is replaced copy-on-write so readers never observe a partial slice.
func (s *Store) growSegments(id uint32) {
	segmentIdx := int(id / s.perSegment)

	segs := s.segments.Load()
	if segs != nil && segmentIdx < len(*segs) && (*segs)[segmentIdx] != nil {
		return
	}

	for {
		old := s.segments.Load()

		currentLen := 0
		if old != nil {
			currentLen = len(*old)
		}
		if segmentIdx < currentLen && (*old)[segmentIdx] != nil {
			return
		}

		newLen := max(segmentIdx+1, currentLen)
		next := make([]*segment, newLen)
		if old != nil {
			copy(next, *old)
		}
		for i := range next {
			if next[i] == nil {
				next[i] = &segment{data: make([]float32, int(s.perSegment)*s.dim)}
			}
		}

		if s.segments.CompareAndSwap(old, &next) {
			return
		}
	}
}
