// Package promcollector exports index metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := promcollector.New(promcollector.WithRegisterer(reg))
//	idx, _ := vsearch.New(128, vsearch.WithMetricsCollector(mc))
package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vsearch"
)

var _ vsearch.MetricsCollector = (*Collector)(nil)

// Options configures a Collector.
type Options struct {
	// Namespace prefixes every metric name. Defaults to "vsearch".
	Namespace string

	// Registerer receives the metrics. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// ConstLabels are attached to every metric, e.g. the index name.
	ConstLabels prometheus.Labels
}

// WithNamespace sets the metric name prefix.
func WithNamespace(ns string) func(*Options) {
	return func(o *Options) {
		o.Namespace = ns
	}
}

// WithRegisterer sets the registry the metrics are registered with.
func WithRegisterer(r prometheus.Registerer) func(*Options) {
	return func(o *Options) {
		o.Registerer = r
	}
}

// WithConstLabels attaches fixed labels to every metric.
func WithConstLabels(l prometheus.Labels) func(*Options) {
	return func(o *Options) {
		o.ConstLabels = l
	}
}

// Collector implements vsearch.MetricsCollector on Prometheus counters and histograms.
type Collector struct {
	opLatency    *prometheus.HistogramVec
	ops          *prometheus.CounterVec
	batchVectors prometheus.Counter
	searchK      *prometheus.HistogramVec
	persistBytes *prometheus.CounterVec
}

// New creates a Collector and registers its metrics.
// It panics if registration fails, like prometheus.MustRegister.
func New(optFns ...func(*Options)) *Collector {
	opts := Options{
		Namespace:  "vsearch",
		Registerer: prometheus.DefaultRegisterer,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "operation_latency_seconds",
			Help:        "Latency of index operations",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: opts.ConstLabels,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "operations_total",
			Help:        "Total index operations",
			ConstLabels: opts.ConstLabels,
		}, []string{"op", "status"}),
		batchVectors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "batch_vectors_total",
			Help:        "Total number of vectors submitted via batch insert",
			ConstLabels: opts.ConstLabels,
		}),
		searchK: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "search_k",
			Help:        "Number of neighbors requested per search",
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
			ConstLabels: opts.ConstLabels,
		}, []string{"mode"}),
		persistBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "persist_bytes_total",
			Help:        "Total bytes written by saves and read by loads",
			ConstLabels: opts.ConstLabels,
		}, []string{"op"}),
	}

	opts.Registerer.MustRegister(c.opLatency, c.ops, c.batchVectors, c.searchK, c.persistBytes)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordInsert implements vsearch.MetricsCollector.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.observe("insert", d, err)
}

// RecordBatchInsert implements vsearch.MetricsCollector.
func (c *Collector) RecordBatchInsert(count, failed int, d time.Duration) {
	s := "success"
	if failed > 0 {
		s = "error"
	}
	c.opLatency.WithLabelValues("batch_insert", s).Observe(d.Seconds())
	c.ops.WithLabelValues("batch_insert", s).Inc()
	c.batchVectors.Add(float64(count))
}

// RecordSearch implements vsearch.MetricsCollector.
func (c *Collector) RecordSearch(mode string, k int, d time.Duration, err error) {
	c.observe("search_"+mode, d, err)
	c.searchK.WithLabelValues(mode).Observe(float64(k))
}

// RecordPersist implements vsearch.MetricsCollector.
func (c *Collector) RecordPersist(op string, bytes int64, d time.Duration, err error) {
	c.observe(op, d, err)
	if err == nil {
		c.persistBytes.WithLabelValues(op).Add(float64(bytes))
	}
}
