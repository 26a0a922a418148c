package vsearch

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/internal/hnsw"
	"github.com/hupe1980/vsearch/persistence"
	"github.com/hupe1980/vsearch/resource"
)

// WriteTo encodes the index to w using the configured compression.
// It implements io.WriterTo.
func (v *VectorIndex) WriteTo(w io.Writer) (int64, error) {
	return v.writeTo(context.Background(), w, "writer")
}

func (v *VectorIndex) writeTo(ctx context.Context, w io.Writer, target string) (int64, error) {
	start := time.Now()

	v.mu.RLock()
	n, err := v.graph.Encode(resource.NewRateLimitedWriter(ctx, w, v.opts.controller), v.opts.compression)
	v.mu.RUnlock()

	err = translatePersistError(err)
	v.metrics.RecordPersist("save", n, time.Since(start), err)
	v.logger.LogSave(ctx, target, n, err)
	return n, err
}

// Save writes the index to path. The file is replaced atomically: on failure
// any previous file at path is left untouched.
func (v *VectorIndex) Save(path string) error {
	err := persistence.SaveToFile(path, func(w io.Writer) error {
		_, err := v.writeTo(context.Background(), w, path)
		return err
	})
	if err != nil {
		return translatePersistError(err)
	}
	return nil
}

// SaveTo writes the index as blob name in store.
func (v *VectorIndex) SaveTo(ctx context.Context, store blobstore.Store, name string) error {
	var buf bytes.Buffer
	if _, err := v.writeTo(ctx, &buf, name); err != nil {
		return err
	}
	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return translatePersistError(err)
	}
	return nil
}

// ReadFrom decodes an index written by WriteTo.
//
// Dimension, M and efConstruction come from the data; other options such as
// the logger, seed and compression apply to the returned index.
// Malformed input fails with ErrCorruptFile and never yields a partial index.
func ReadFrom(r io.Reader, optFns ...Option) (*VectorIndex, error) {
	return readFrom(context.Background(), r, "reader", optFns)
}

func readFrom(ctx context.Context, r io.Reader, source string, optFns []Option) (*VectorIndex, error) {
	o := applyOptions(optFns)
	start := time.Now()

	cr := &countingReader{r: resource.NewRateLimitedReader(ctx, r, o.controller)}
	g, err := hnsw.ReadFrom(cr, func(h *hnsw.Options) {
		h.Source = o.source
		h.RandomSeed = o.seed
	})

	err = translatePersistError(err)
	o.metrics.RecordPersist("load", cr.n, time.Since(start), err)

	nodes := 0
	if g != nil {
		nodes = g.Len()
	}
	o.logger.LogLoad(ctx, source, nodes, err)

	if err != nil {
		return nil, err
	}
	return newIndex(g, o), nil
}

// Load reads an index saved with Save.
func Load(path string, optFns ...Option) (*VectorIndex, error) {
	var idx *VectorIndex
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var err error
		idx, err = readFrom(context.Background(), r, path, optFns)
		return err
	})
	if err != nil {
		return nil, translatePersistError(err)
	}
	return idx, nil
}

// LoadFrom reads an index stored as blob name in store.
func LoadFrom(ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*VectorIndex, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, translatePersistError(err)
	}
	defer func() { _ = blob.Close() }()

	return readFrom(ctx, blob, name, optFns)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
