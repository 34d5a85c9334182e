// Package config loads the configuration file of the xsort command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/davidvella/xsort"
	"github.com/davidvella/xsort/merger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Storage kinds for run files.
const (
	StorageLocal  = "local"
	StoragePebble = "pebble"
)

// Config is the on-disk configuration. Zero values of optional fields keep
// the library defaults.
type Config struct {
	// RunSize is the serialized size in bytes at which a run is cut.
	RunSize int64 `yaml:"run_size"`
	// BufferSize is the I/O buffer size in bytes.
	BufferSize int `yaml:"buffer_size"`
	// FanIn fixes the merge degree; zero derives it from the input size.
	FanIn             int    `yaml:"fan_in,omitempty"`
	Strategy          string `yaml:"strategy"`
	Buffer            string `yaml:"buffer"`
	DeleteConcurrency int    `yaml:"delete_concurrency"`
	// TempDir is where the private run directory is created.
	TempDir string `yaml:"temp_dir,omitempty"`
	// MemoryLimit is a soft limit for the Go runtime in bytes; zero leaves it unset.
	MemoryLimit int64 `yaml:"memory_limit,omitempty"`

	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects where runs are kept.
type StorageConfig struct {
	Kind   string       `yaml:"kind"`
	Pebble PebbleConfig `yaml:"pebble,omitempty"`
}

// PebbleConfig tunes the pebble run store.
type PebbleConfig struct {
	InMemory  bool  `yaml:"in_memory,omitempty"`
	ChunkSize int   `yaml:"chunk_size,omitempty"`
	CacheSize int64 `yaml:"cache_size,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		RunSize:           xsort.DefaultRunSize,
		BufferSize:        xsort.DefaultBufferSize,
		Strategy:          "heap",
		Buffer:            "slice",
		DeleteConcurrency: xsort.DefaultDeleteConcurrency,
		Storage: StorageConfig{
			Kind: StorageLocal,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if dir := os.Getenv("XSORT_TEMP_DIR"); dir != "" {
		c.TempDir = dir
	}
	if v := os.Getenv("XSORT_RUN_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid XSORT_RUN_SIZE %q: %w", v, err)
		}
		c.RunSize = n
	}
	if v := os.Getenv("XSORT_MEMORY_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid XSORT_MEMORY_LIMIT %q: %w", v, err)
		}
		c.MemoryLimit = n
	}
	return nil
}

// Validate rejects a configuration before any file is touched.
func (c *Config) Validate() error {
	if c.RunSize <= 0 {
		return fmt.Errorf("%w: run_size must be greater than 0, got %d", xsort.ErrInvalidConfig, c.RunSize)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer_size must be greater than 0, got %d", xsort.ErrInvalidConfig, c.BufferSize)
	}
	if c.FanIn < 0 {
		return fmt.Errorf("%w: fan_in must not be negative, got %d", xsort.ErrInvalidConfig, c.FanIn)
	}
	if c.DeleteConcurrency <= 0 {
		return fmt.Errorf("%w: delete_concurrency must be greater than 0, got %d", xsort.ErrInvalidConfig, c.DeleteConcurrency)
	}
	if c.MemoryLimit < 0 {
		return fmt.Errorf("%w: memory_limit must not be negative, got %d", xsort.ErrInvalidConfig, c.MemoryLimit)
	}
	if _, err := merger.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: %w", xsort.ErrInvalidConfig, err)
	}
	if _, err := xsort.ParseBufferKind(c.Buffer); err != nil {
		return err
	}
	switch c.Storage.Kind {
	case StorageLocal, StoragePebble, "":
	default:
		return fmt.Errorf("%w: unknown storage kind %q (valid: %s, %s)",
			xsort.ErrInvalidConfig, c.Storage.Kind, StorageLocal, StoragePebble)
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", xsort.ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the configuration to sorter options. Run storage is not
// included because the caller owns its lifetime.
func (c *Config) Options() ([]xsort.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	strategy, _ := merger.ParseStrategy(c.Strategy)
	buffer, _ := xsort.ParseBufferKind(c.Buffer)

	opts := []xsort.Option{
		xsort.WithRunSize(c.RunSize),
		xsort.WithBufferSize(c.BufferSize),
		xsort.WithStrategy(strategy),
		xsort.WithBuffer(buffer),
		xsort.WithDeleteConcurrency(c.DeleteConcurrency),
	}
	if c.FanIn > 0 {
		opts = append(opts, xsort.WithFanIn(c.FanIn))
	}
	if c.TempDir != "" {
		opts = append(opts, xsort.WithTempDir(c.TempDir))
	}
	return opts, nil
}
