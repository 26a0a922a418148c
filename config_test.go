package vsearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
dimension: 4
m: 8
ef_construction: 50
workers: 2
seed: 7
compression: lz4
log:
  level: warn
  format: json
resources:
  max_workers: 4
  io_limit_bytes_per_sec: 1048576
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Dimension)
	assert.Equal(t, 8, cfg.M)
	assert.Equal(t, 50, cfg.EFConstruction)
	assert.Equal(t, 2, cfg.Workers)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(7), *cfg.Seed)
	assert.Equal(t, "lz4", cfg.Compression)
	assert.Equal(t, LogConfig{Level: "warn", Format: "json"}, cfg.Log)
	assert.Equal(t, int64(4), cfg.Resources.MaxWorkers)
	assert.Equal(t, int64(1048576), cfg.Resources.IOLimitBytesPerSec)

	idx, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Dimension())
	assert.Equal(t, 8, idx.M())
	assert.Equal(t, 50, idx.EFConstruction())
	assert.Equal(t, CompressionLZ4, idx.opts.compression)
	assert.Equal(t, 2, idx.opts.workers)
	require.NotNil(t, idx.opts.controller)
	assert.Equal(t, int64(4), idx.opts.controller.Config().MaxWorkers)

	_, err = idx.AddParallel(context.Background(), [][]float32{{1, 2, 3, 4}, {4, 3, 2, 1}})
	require.NoError(t, err)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)

	// Dimension is required.
	_, err = NewFromConfig(cfg)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("dimension: 4\nefconstruction: 10\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("dimension: [1, 2]"))
	assert.Error(t, err)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown compression", Config{Dimension: 4, Compression: "brotli"}},
		{"unknown log level", Config{Dimension: 4, Log: LogConfig{Level: "loud"}}},
		{"unknown log format", Config{Dimension: 4, Log: LogConfig{Level: "info", Format: "xml"}}},
		{"negative workers", Config{Dimension: 4, Workers: -2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFromConfig(&tc.cfg)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Dimension)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFromConfig_ExtraOptionsWin(t *testing.T) {
	cfg := &Config{Dimension: 3, M: 4}

	idx, err := NewFromConfig(cfg, WithM(12))
	require.NoError(t, err)
	assert.Equal(t, 12, idx.M())
}
