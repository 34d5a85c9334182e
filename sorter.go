package xsort

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/davidvella/xsort/merger"
	"github.com/davidvella/xsort/producer"
	"github.com/davidvella/xsort/storage"
	"github.com/davidvella/xsort/storage/local"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned for a configuration that cannot sort anything.
var ErrInvalidConfig = errors.New("xsort: invalid configuration")

// Stats describes a completed sort.
type Stats struct {
	// InputBytes is the size of the input file; zero for streams.
	InputBytes int64
	// Records and Bytes count what was written to the output.
	Records int64
	Bytes   int64
	// Runs is the number of runs produced and FanIn the degree they were merged with.
	Runs  int
	FanIn int
	// CleanupErr holds run deletion failures. They do not fail the sort.
	CleanupErr error
}

// Sorter sorts newline-delimited decimal integers that may not fit in memory.
type Sorter struct {
	opts   options
	logger *zap.Logger
}

// NewSorter creates a sorter. The configuration is validated before any I/O.
func NewSorter(opts ...Option) (*Sorter, error) {
	// Apply default options
	o := defaultOptions()

	// Apply user options
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Sorter{opts: o, logger: o.logger}, nil
}

// FanIn returns the number of runs produced from totalBytes of input cut into
// runs of runSize bytes. It is never less than 1.
func FanIn(totalBytes, runSize int64) (int, error) {
	if runSize <= 0 {
		return 0, fmt.Errorf("%w: run size must be greater than 0, got %d", ErrInvalidConfig, runSize)
	}
	if totalBytes <= 0 {
		return 1, nil
	}
	return int((totalBytes-1)/runSize + 1), nil
}

// Sort reads inputPath and writes its records in ascending order to
// outputPath. The output appears only once the sort has succeeded; on failure
// an existing file at outputPath is left untouched.
func (s *Sorter) Sort(ctx context.Context, inputPath, outputPath string) (Stats, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("xsort: opening input: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return Stats{}, fmt.Errorf("xsort: opening input: %w", err)
	}

	fanIn, err := FanIn(info.Size(), s.opts.runSize)
	if err != nil {
		return Stats{}, err
	}
	if s.opts.fanInSet {
		if s.opts.fanIn < fanIn {
			return Stats{}, fmt.Errorf("%w: fan-in %d is below the %d runs needed for %d bytes",
				ErrInvalidConfig, s.opts.fanIn, fanIn, info.Size())
		}
		fanIn = s.opts.fanIn
	}

	out, err := local.CreateOutput(outputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("xsort: %w", err)
	}

	logger := s.logger.With(
		zap.String("sort_id", uuid.NewString()),
		zap.String("input", inputPath),
		zap.String("output", out.Path()))
	logger.Debug("writing output", zap.String("temp_path", out.TempPath()))

	stats, err := s.sort(ctx, logger, in, out, fanIn)
	stats.InputBytes = info.Size()
	if err != nil {
		if aerr := out.Abort(); aerr != nil {
			logger.Warn("failed to remove partial output", zap.Error(aerr))
		}
		return stats, err
	}
	if err := out.Publish(); err != nil {
		return stats, fmt.Errorf("xsort: %w", err)
	}

	logger.Info("sort complete",
		zap.Int64("records", stats.Records),
		zap.Int("runs", stats.Runs),
		zap.Int("fan_in", stats.FanIn))
	return stats, nil
}

// SortStream sorts r into w. The input size is unknown, so the fan-in is the
// number of runs produced. w is not closed.
func (s *Sorter) SortStream(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	logger := s.logger.With(zap.String("sort_id", uuid.NewString()))

	fanIn := 0
	if s.opts.fanInSet {
		fanIn = s.opts.fanIn
	}
	stats, err := s.sort(ctx, logger, r, nopCloser{w}, fanIn)
	if err != nil {
		return stats, err
	}

	logger.Info("sort complete",
		zap.Int64("records", stats.Records),
		zap.Int("runs", stats.Runs),
		zap.Int("fan_in", stats.FanIn))
	return stats, nil
}

// sort runs both phases. maxRuns caps phase one; zero lets the run list grow
// and merges whatever was produced. out is closed on every path.
func (s *Sorter) sort(ctx context.Context, logger *zap.Logger, r io.Reader, out io.WriteCloser, maxRuns int) (stats Stats, err error) {
	runStorage, release, err := s.runStorage(logger)
	if err != nil {
		out.Close()
		return stats, err
	}
	defer func() {
		if rerr := release(); rerr != nil {
			logger.Warn("failed to remove run directory", zap.Error(rerr))
		}
	}()

	p, err := producer.New(runStorage, producer.Options{
		RunSize:    s.opts.runSize,
		MaxRuns:    maxRuns,
		BufferSize: s.opts.bufferSize,
		Buffer:     s.opts.buffer.newBuffer(),
		Logger:     logger,
	})
	if err != nil {
		out.Close()
		return stats, fmt.Errorf("xsort: %w", err)
	}

	logger.Debug("producing runs", zap.Int64("run_size", s.opts.runSize), zap.Int("max_runs", maxRuns))
	runs, err := p.Produce(ctx, r)
	stats.Runs = len(runs)
	if err != nil {
		out.Close()
		s.discard(runStorage, logger, runs)
		return stats, fmt.Errorf("xsort: producing runs: %w", err)
	}

	stats.FanIn = maxRuns
	if stats.FanIn == 0 {
		stats.FanIn = max(len(runs), 1)
	}
	logger.Info("runs produced", zap.Int("runs", len(runs)), zap.Int("fan_in", stats.FanIn))

	m, err := merger.New(runStorage, merger.Options{
		FanIn:             stats.FanIn,
		BufferSize:        s.opts.bufferSize,
		Strategy:          s.opts.strategy,
		DeleteConcurrency: s.opts.deleteConcurrency,
		Logger:            logger,
	})
	if err != nil {
		out.Close()
		s.discard(runStorage, logger, runs)
		return stats, fmt.Errorf("xsort: %w", err)
	}

	merged, err := m.Merge(ctx, runs, out)
	stats.Records, stats.Bytes, stats.CleanupErr = merged.Records, merged.Bytes, merged.CleanupErr
	if err != nil {
		s.discard(runStorage, logger, runs)
		return stats, fmt.Errorf("xsort: merging runs: %w", err)
	}
	return stats, nil
}

// runStorage returns the storage runs are written to and a function that
// releases it once the sort is over.
func (s *Sorter) runStorage(logger *zap.Logger) (storage.Storage, func() error, error) {
	if s.opts.storage != nil {
		return s.opts.storage, func() error { return nil }, nil
	}

	tmp, err := local.NewTempStorage(s.opts.tempDir)
	if err != nil {
		return nil, nil, fmt.Errorf("xsort: creating run directory: %w", err)
	}
	logger.Debug("run directory created", zap.String("dir", tmp.Dir()))
	return tmp, tmp.Close, nil
}

// discard deletes the runs of a failed sort. A private run directory is
// removed anyway; caller-owned storage must not keep them.
func (s *Sorter) discard(st storage.Storage, logger *zap.Logger, runs []storage.Run) {
	if s.opts.storage == nil || len(runs) == 0 {
		return
	}
	if err := merger.Cleanup(context.Background(), st, runs, s.opts.deleteConcurrency, logger); err != nil {
		logger.Warn("failed to discard runs", zap.Error(err))
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
