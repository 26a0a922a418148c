package vsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vsearch/internal/bruteforce"
	"github.com/hupe1980/vsearch/internal/hnsw"
	"github.com/hupe1980/vsearch/internal/vectorstore"
	"github.com/hupe1980/vsearch/persistence"
)

var (
	// ErrEmptyIndex is returned when searching an index with no vectors.
	ErrEmptyIndex = errors.New("vsearch: index is empty")

	// ErrInvalidParameter is returned for out-of-range configuration or query parameters.
	ErrInvalidParameter = errors.New("vsearch: invalid parameter")

	// ErrIO is returned when reading or writing an index file fails.
	ErrIO = errors.New("vsearch: io error")

	// ErrCorruptFile is returned when an index file fails to decode or validate.
	ErrCorruptFile = errors.New("vsearch: corrupt index file")

	// ErrInvalidGraph is returned by Validate when a structural invariant is violated.
	ErrInvalidGraph = hnsw.ErrInvalidGraph
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidID indicates a vector id outside [0, Len).
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidID struct {
	ID    uint32
	Len   int
	cause error
}

func (e *ErrInvalidID) Error() string {
	return fmt.Sprintf("invalid id %d: index holds %d vectors", e.ID, e.Len)
}

func (e *ErrInvalidID) Unwrap() error { return e.cause }

// BatchError reports the input position of the vector that stopped a batch insert.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("insert vector %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var be *hnsw.BatchError
	if errors.As(err, &be) {
		return &BatchError{Index: be.Index, Err: translateError(be.Err)}
	}

	// Dimension and argument normalization.
	var dm *vectorstore.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var iid *vectorstore.ErrInvalidID
	if errors.As(err, &iid) {
		return &ErrInvalidID{ID: iid.ID, Len: iid.Len, cause: err}
	}
	var idim *vectorstore.ErrInvalidDimension
	if errors.As(err, &idim) {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	if errors.Is(err, hnsw.ErrInvalidParameter) || errors.Is(err, bruteforce.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	// Empty index unification.
	if errors.Is(err, hnsw.ErrEmptyIndex) || errors.Is(err, bruteforce.ErrEmptyIndex) {
		return fmt.Errorf("%w: %w", ErrEmptyIndex, err)
	}

	return err
}

// translatePersistError classifies save/load failures as corrupt input or IO.
// Cancellation is passed through unchanged.
func translatePersistError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrIO) || errors.Is(err, ErrCorruptFile) {
		return err
	}
	if errors.Is(err, persistence.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
