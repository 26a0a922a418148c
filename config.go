package vsearch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/vsearch/persistence"
	"github.com/hupe1980/vsearch/resource"
)

// Config is the file form of an index configuration.
//
// Example:
//
//	dimension: 128
//	m: 16
//	ef_construction: 200
//	workers: 8
//	seed: 42
//	compression: zstd
//	log:
//	  level: info
//	  format: json
//	resources:
//	  max_workers: 16
//	  io_limit_bytes_per_sec: 104857600
type Config struct {
	Dimension      int             `yaml:"dimension"`
	M              int             `yaml:"m"`
	EFConstruction int             `yaml:"ef_construction"`
	Workers        int             `yaml:"workers"`
	Seed           *int64          `yaml:"seed"`
	Compression    string          `yaml:"compression"`
	Log            LogConfig       `yaml:"log"`
	Resources      ResourcesConfig `yaml:"resources"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error; empty disables logging
	Format string `yaml:"format"` // text (default) or json
}

// ResourcesConfig mirrors resource.Config.
type ResourcesConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes"`
	MaxWorkers         int64 `yaml:"max_workers"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec"`
}

// LoadConfig reads and parses the YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML config. Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Options converts the config into index options. Zero values keep defaults.
func (c *Config) Options() ([]Option, error) {
	var opts []Option

	if c.M != 0 {
		opts = append(opts, WithM(c.M))
	}
	if c.EFConstruction != 0 {
		opts = append(opts, WithEFConstruction(c.EFConstruction))
	}
	if c.Workers != 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	if c.Seed != nil {
		opts = append(opts, WithSeed(*c.Seed))
	}

	if c.Compression != "" {
		comp, err := persistence.ParseCompression(c.Compression)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
		opts = append(opts, WithCompression(comp))
	}

	if c.Log.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return nil, fmt.Errorf("%w: log level: %w", ErrInvalidParameter, err)
		}
		switch strings.ToLower(c.Log.Format) {
		case "", "text":
			opts = append(opts, WithLogger(NewTextLogger(level)))
		case "json":
			opts = append(opts, WithLogger(NewJSONLogger(level)))
		default:
			return nil, fmt.Errorf("%w: unknown log format %q", ErrInvalidParameter, c.Log.Format)
		}
	}

	if c.Resources != (ResourcesConfig{}) {
		opts = append(opts, WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:   c.Resources.MemoryLimitBytes,
			MaxWorkers:         c.Resources.MaxWorkers,
			IOLimitBytesPerSec: c.Resources.IOLimitBytesPerSec,
		})))
	}

	return opts, nil
}

// NewFromConfig creates an empty index from cfg. extra options are applied last.
func NewFromConfig(cfg *Config, extra ...Option) (*VectorIndex, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(cfg.Dimension, append(opts, extra...)...)
}
