package hnsw

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// DefaultM is the default number of bidirectional links per layer.
	DefaultM = 16

	// DefaultEFConstruction is the default beam width used while inserting.
	DefaultEFConstruction = 200

	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2
)

var (
	ErrEmptyIndex       = errors.New("hnsw: index is empty")
	ErrInvalidParameter = errors.New("hnsw: invalid parameter")
	ErrInvalidGraph     = errors.New("hnsw: invalid graph")
)

// Options represents the options for configuring a Graph.
type Options struct {
	Dimension      int
	M              int
	EFConstruction int

	// Source drives layer assignment. It takes precedence over RandomSeed.
	Source rand.Source

	// RandomSeed seeds the default source when Source is nil.
	// If both are nil the source is seeded from the clock.
	RandomSeed *int64
}

var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
}

func (o *Options) validate() error {
	if o.M < 1 {
		return fmt.Errorf("%w: m must be positive, got %d", ErrInvalidParameter, o.M)
	}
	if o.EFConstruction < 1 {
		return fmt.Errorf("%w: ef_construction must be positive, got %d", ErrInvalidParameter, o.EFConstruction)
	}
	return nil
}

// SearchResult is a node id and its squared distance to the query.
type SearchResult struct {
	ID       uint32
	Distance float32
}

// BatchError reports the input position of the vector whose insertion failed.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("insert vector %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

type LevelStats struct {
	Level       int
	Nodes       int
	Connections int
	AvgDegree   float64
}

type Stats struct {
	Nodes          int
	Dimension      int
	M              int
	M0             int
	EFConstruction int
	EntryPoint     uint32
	TopLevel       int
	Levels         []LevelStats

	// Reachable counts nodes reachable from the entry point over layer 0 edges.
	Reachable int
	// AsymmetricEdges counts directed edges without a matching back-edge.
	AsymmetricEdges int
}
