package producer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/davidvella/xsort/record"
	"github.com/davidvella/xsort/recordio"
	"github.com/davidvella/xsort/storage"
	"go.uber.org/zap"
)

// cancelCheckInterval is how many records are read between context checks.
const cancelCheckInterval = 1024

var (
	ErrInvalidRunSize = errors.New("producer: run size must be greater than 0")
	ErrTooManyRuns    = errors.New("producer: input produced more runs than the fan-in allows")
)

// Options configures a Producer.
type Options struct {
	// RunSize is the serialized size in bytes at which a run is cut.
	RunSize int64
	// MaxRuns caps the number of runs; zero means no limit.
	MaxRuns int
	// BufferSize is the I/O buffer size for reading input and writing runs.
	BufferSize int
	// Buffer holds a run in memory. Defaults to a SliceBuffer.
	Buffer Buffer
	Logger *zap.Logger
}

// Producer reads input once and writes it out as sorted runs, one run per
// storage index.
type Producer struct {
	storage storage.Storage
	opts    Options
	buffer  Buffer
	logger  *zap.Logger
}

func New(s storage.Storage, opts Options) (*Producer, error) {
	if opts.RunSize <= 0 {
		return nil, ErrInvalidRunSize
	}
	if opts.MaxRuns < 0 {
		return nil, fmt.Errorf("producer: max runs must not be negative, got %d", opts.MaxRuns)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = recordio.DefaultBufferSize
	}

	p := &Producer{
		storage: s,
		opts:    opts,
		buffer:  opts.Buffer,
		logger:  opts.Logger,
	}
	if p.buffer == nil {
		p.buffer = NewSliceBuffer()
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p, nil
}

// Produce splits r into runs. Each run holds records totalling at least
// RunSize serialized bytes, except the last which holds whatever remains.
// Runs written before an error are returned alongside it so the caller can
// delete them.
func (p *Producer) Produce(ctx context.Context, r io.Reader) ([]storage.Run, error) {
	var (
		reader = recordio.NewReader(r, p.opts.BufferSize)
		runs   []storage.Run
	)

	for {
		run, err := p.fill(ctx, reader)
		if err != nil {
			return runs, err
		}
		if run.Records == 0 {
			return runs, nil
		}

		if p.opts.MaxRuns > 0 && len(runs) == p.opts.MaxRuns {
			return runs, fmt.Errorf("%w: limit %d", ErrTooManyRuns, p.opts.MaxRuns)
		}

		run.Index = len(runs)
		if err := p.writeRun(ctx, run); err != nil {
			return runs, err
		}
		runs = append(runs, run)

		p.logger.Debug("run written",
			zap.Int("run", run.Index),
			zap.Int64("records", run.Records),
			zap.Int64("bytes", run.Bytes))
	}
}

// fill reads records into the buffer until the run budget is reached or the
// input ends.
func (p *Producer) fill(ctx context.Context, reader *recordio.Reader) (storage.Run, error) {
	var run storage.Run

	if err := ctx.Err(); err != nil {
		return run, fmt.Errorf("producer: %w", err)
	}

	p.buffer.Reset()
	for run.Bytes < p.opts.RunSize && reader.Next() {
		rec := reader.Record()
		p.buffer.Add(rec)
		run.Records++
		run.Bytes += recordio.Size(rec)

		if run.Records%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return run, fmt.Errorf("producer: %w", err)
			}
		}
	}

	if err := reader.Err(); err != nil {
		return run, fmt.Errorf("producer: reading input: %w", err)
	}
	return run, nil
}

func (p *Producer) writeRun(ctx context.Context, run storage.Run) (err error) {
	w, err := p.storage.Create(ctx, run.Index)
	if err != nil {
		return fmt.Errorf("producer: run %d: %w", run.Index, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("producer: closing run %d: %w", run.Index, cerr)
		}
	}()

	bw := bufio.NewWriterSize(w, p.opts.BufferSize)
	var (
		scratch  = make([]byte, 0, 24)
		writeErr error
	)
	p.buffer.Ascend(func(rec record.Record) bool {
		scratch = recordio.Append(scratch[:0], rec)
		_, writeErr = bw.Write(scratch)
		return writeErr == nil
	})
	if writeErr != nil {
		return fmt.Errorf("producer: writing %s: %w", p.storage.Name(run.Index), writeErr)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("producer: writing %s: %w", p.storage.Name(run.Index), err)
	}
	return nil
}
