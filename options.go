package vsearch

import (
	"log/slog"
	"math/rand"

	"github.com/hupe1980/vsearch/internal/hnsw"
	"github.com/hupe1980/vsearch/persistence"
	"github.com/hupe1980/vsearch/resource"
)

// Compression selects the codec for saved index payloads.
type Compression = persistence.Compression

const (
	CompressionNone = persistence.CompressionNone
	CompressionLZ4  = persistence.CompressionLZ4
	CompressionZstd = persistence.CompressionZstd
)

const (
	// DefaultM is the default maximum degree above layer 0.
	DefaultM = hnsw.DefaultM

	// DefaultEFConstruction is the default insertion beam width.
	DefaultEFConstruction = hnsw.DefaultEFConstruction

	// DefaultChunkSize is the chunk size AddChunked uses when chunkSize is 0.
	DefaultChunkSize = 5000
)

type options struct {
	m              int
	efConstruction int
	workers        int
	seed           *int64
	source         rand.Source
	compression    Compression
	metrics        MetricsCollector
	logger         *Logger
	controller     *resource.Controller
}

// Option configures index construction and loading.
//
// Graph parameters (M, efConstruction) are stored in saved files; when
// loading, the file's values take precedence over WithM and WithEFConstruction.
type Option func(*options)

// WithM sets the maximum number of neighbors per node above layer 0.
// Layer 0 allows twice as many.
func WithM(m int) Option {
	return func(o *options) {
		o.m = m
	}
}

// WithEFConstruction sets the beam width used while inserting.
// Higher values build a better graph at the cost of insert speed.
func WithEFConstruction(ef int) Option {
	return func(o *options) {
		o.efConstruction = ef
	}
}

// WithWorkers sets the number of goroutines used by AddParallel and AddChunked.
// If workers is 0, GOMAXPROCS is used.
func WithWorkers(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithSeed makes layer assignment reproducible.
// Sequential inserts with the same seed build identical graphs.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithRandSource sets the random source for layer assignment.
// It takes precedence over WithSeed.
func WithRandSource(src rand.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithCompression sets the payload codec used by Save, WriteTo and SaveTo.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vsearch.BasicMetricsCollector{}
//	idx, _ := vsearch.New(128, vsearch.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vsearch.NewJSONLogger(slog.LevelInfo)
//	idx, _ := vsearch.New(128, vsearch.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares worker, memory and IO limits with other indexes.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		m:              DefaultM,
		efConstruction: DefaultEFConstruction,
		compression:    CompressionNone,
		metrics:        NoopMetricsCollector{},
		logger:         NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

func (o *options) hnswOptions(dim int) func(*hnsw.Options) {
	return func(h *hnsw.Options) {
		h.Dimension = dim
		h.M = o.m
		h.EFConstruction = o.efConstruction
		h.Source = o.source
		h.RandomSeed = o.seed
	}
}
