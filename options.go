package xsort

import (
	"fmt"

	"github.com/davidvella/xsort/merger"
	"github.com/davidvella/xsort/producer"
	"github.com/davidvella/xsort/recordio"
	"github.com/davidvella/xsort/storage"
	"go.uber.org/zap"
)

const (
	// DefaultRunSize is the serialized size at which a run is cut.
	DefaultRunSize int64 = 100 << 20
	// DefaultBufferSize is the I/O buffer size for the input, each run and the output.
	DefaultBufferSize = recordio.DefaultBufferSize
	// DefaultDeleteConcurrency bounds how many runs are deleted in parallel.
	DefaultDeleteConcurrency = 8
)

// Strategy selects how the merge picks the next record.
type Strategy = merger.Strategy

const (
	Heap       = merger.Heap
	Tournament = merger.Tournament
)

// BufferKind selects how a run is held in memory before it is written.
type BufferKind int

const (
	// SliceBuffer appends records and sorts them once per run.
	SliceBuffer BufferKind = iota
	// TreeBuffer keeps records ordered in a B-tree as they arrive.
	TreeBuffer
)

func (b BufferKind) String() string {
	switch b {
	case SliceBuffer:
		return "slice"
	case TreeBuffer:
		return "btree"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(b))
	}
}

// ParseBufferKind maps a buffer name back to its value.
func ParseBufferKind(name string) (BufferKind, error) {
	switch name {
	case "slice", "":
		return SliceBuffer, nil
	case "btree", "tree":
		return TreeBuffer, nil
	default:
		return SliceBuffer, fmt.Errorf("%w: unknown buffer %q", ErrInvalidConfig, name)
	}
}

func (b BufferKind) newBuffer() producer.Buffer {
	if b == TreeBuffer {
		return producer.NewTreeBuffer()
	}
	return producer.NewSliceBuffer()
}

// options defines all configuration options for the sorter.
type options struct {
	// Run production
	runSize    int64      // Serialized bytes per run
	bufferSize int        // I/O buffer size
	buffer     BufferKind // In-memory run buffer

	// Merge
	fanIn             int // Explicit fan-in; zero derives it from the input size
	fanInSet          bool
	strategy          Strategy
	deleteConcurrency int

	// Run storage
	tempDir string          // Parent of the private run directory
	storage storage.Storage // Caller-owned run storage; overrides tempDir

	logger *zap.Logger
}

// Option is a function that configures the sorter options.
type Option func(*options)

// WithRunSize sets the serialized size in bytes at which a run is cut.
func WithRunSize(n int64) Option {
	return func(o *options) {
		o.runSize = n
	}
}

// WithBufferSize sets the I/O buffer size.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithFanIn fixes the number of runs merged at once. It must be at least the
// fan-in derived from the input size.
func WithFanIn(k int) Option {
	return func(o *options) {
		o.fanIn = k
		o.fanInSet = true
	}
}

// WithTempDir sets the directory in which the private run directory is created.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithStorage stores runs in s instead of a private temporary directory. The
// caller owns s and closes it.
func WithStorage(s storage.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithStrategy sets the merge strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithBuffer sets the in-memory run buffer.
func WithBuffer(b BufferKind) Option {
	return func(o *options) {
		o.buffer = b
	}
}

// WithDeleteConcurrency bounds how many runs are deleted in parallel.
func WithDeleteConcurrency(n int) Option {
	return func(o *options) {
		o.deleteConcurrency = n
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		runSize:           DefaultRunSize,
		bufferSize:        DefaultBufferSize,
		buffer:            SliceBuffer,
		strategy:          Heap,
		deleteConcurrency: DefaultDeleteConcurrency,
		logger:            zap.NewNop(),
	}
}

func (o options) validate() error {
	switch {
	case o.runSize <= 0:
		return fmt.Errorf("%w: run size must be greater than 0, got %d", ErrInvalidConfig, o.runSize)
	case o.bufferSize <= 0:
		return fmt.Errorf("%w: buffer size must be greater than 0, got %d", ErrInvalidConfig, o.bufferSize)
	case o.fanInSet && o.fanIn <= 0:
		return fmt.Errorf("%w: fan-in degree must be greater than 0, got %d", ErrInvalidConfig, o.fanIn)
	case o.deleteConcurrency <= 0:
		return fmt.Errorf("%w: delete concurrency must be greater than 0, got %d", ErrInvalidConfig, o.deleteConcurrency)
	case o.strategy != Heap && o.strategy != Tournament:
		return fmt.Errorf("%w: unknown strategy %v", ErrInvalidConfig, o.strategy)
	case o.buffer != SliceBuffer && o.buffer != TreeBuffer:
		return fmt.Errorf("%w: unknown buffer %v", ErrInvalidConfig, o.buffer)
	case o.logger == nil:
		return fmt.Errorf("%w: logger must not be nil", ErrInvalidConfig)
	}
	return nil
}
