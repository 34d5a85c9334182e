package merger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/davidvella/xsort/loser"
	"github.com/davidvella/xsort/priority"
	"github.com/davidvella/xsort/record"
	"github.com/davidvella/xsort/recordio"
	"github.com/davidvella/xsort/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many records are merged between context checks.
const cancelCheckInterval = 1024

const defaultDeleteConcurrency = 8

var (
	ErrInvalidFanIn  = errors.New("merger: fan-in degree must be greater than 0")
	ErrFanInExceeded = errors.New("merger: more runs than the fan-in degree")
)

// Strategy selects the structure that picks the next smallest record.
type Strategy int

const (
	// Heap keeps one pending entry per run in a binary heap keyed by run.
	Heap Strategy = iota
	// Tournament merges runs through a loser tree.
	Tournament
)

func (s Strategy) String() string {
	switch s {
	case Heap:
		return "heap"
	case Tournament:
		return "tournament"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a strategy name back to its value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "heap", "":
		return Heap, nil
	case "tournament", "loser":
		return Tournament, nil
	default:
		return Heap, fmt.Errorf("merger: unknown strategy %q", name)
	}
}

// Options configures a Merger.
type Options struct {
	// FanIn is the number of runs merged at once.
	FanIn int
	// BufferSize is the I/O buffer size for each run reader and the output.
	BufferSize int
	Strategy   Strategy
	// DeleteConcurrency bounds how many runs are deleted in parallel.
	DeleteConcurrency int
	Logger            *zap.Logger
}

// Stats describes a completed merge.
type Stats struct {
	Runs    int
	Records int64
	Bytes   int64
	// CleanupErr holds every run deletion failure. It does not fail the merge.
	CleanupErr error
}

// Merger k-way merges sorted runs into a single sorted output.
type Merger struct {
	storage storage.Storage
	opts    Options
	logger  *zap.Logger
}

func New(s storage.Storage, opts Options) (*Merger, error) {
	if opts.FanIn <= 0 {
		return nil, ErrInvalidFanIn
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = recordio.DefaultBufferSize
	}
	if opts.DeleteConcurrency <= 0 {
		opts.DeleteConcurrency = defaultDeleteConcurrency
	}
	if opts.Strategy != Heap && opts.Strategy != Tournament {
		return nil, fmt.Errorf("merger: unknown strategy %v", opts.Strategy)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{storage: s, opts: opts, logger: logger}, nil
}

// source reads one run. Its entries carry the run index so equal keys leave
// the merge in ascending run order.
type source struct {
	run    storage.Run
	rc     io.ReadCloser
	reader *recordio.Reader
}

func (s *source) next() (record.Entry, bool) {
	if !s.reader.Next() {
		return record.Entry{}, false
	}
	return record.Entry{Key: s.reader.Record(), Source: s.run.Index}, true
}

func (s *source) All() iter.Seq[record.Entry] {
	return func(yield func(record.Entry) bool) {
		for {
			e, ok := s.next()
			if !ok || !yield(e) {
				return
			}
		}
	}
}

// Merge writes the ascending merge of runs to out and closes out. Every run
// must hold one ascending sequence. After a successful merge the runs are
// deleted; deletion failures are reported in Stats.CleanupErr.
func (m *Merger) Merge(ctx context.Context, runs []storage.Run, out io.WriteCloser) (stats Stats, err error) {
	stats.Runs = len(runs)

	sources := make([]*source, 0, len(runs))
	outClosed := false
	defer func() {
		for _, src := range sources {
			src.rc.Close()
		}
		if !outClosed {
			out.Close()
		}
	}()

	if len(runs) > m.opts.FanIn {
		return stats, fmt.Errorf("%w: %d runs, fan-in %d", ErrFanInExceeded, len(runs), m.opts.FanIn)
	}

	for _, run := range runs {
		rc, err := m.storage.Open(ctx, run.Index)
		if err != nil {
			return stats, fmt.Errorf("merger: opening run %d: %w", run.Index, err)
		}
		sources = append(sources, &source{
			run:    run,
			rc:     rc,
			reader: recordio.NewReader(rc, m.opts.BufferSize),
		})
	}

	bw := &countingWriter{w: bufio.NewWriterSize(out, m.opts.BufferSize)}
	switch m.opts.Strategy {
	case Tournament:
		err = m.mergeTournament(ctx, sources, bw)
	default:
		err = m.mergeHeap(ctx, sources, bw)
	}
	stats.Records, stats.Bytes = bw.records, bw.bytes
	if err != nil {
		return stats, err
	}

	var closeErr error
	for _, src := range sources {
		if cerr := src.rc.Close(); cerr != nil {
			closeErr = multierr.Append(closeErr, fmt.Errorf("merger: closing %s: %w", m.storage.Name(src.run.Index), cerr))
		}
	}
	sources = nil
	if closeErr != nil {
		return stats, closeErr
	}

	if err := bw.w.Flush(); err != nil {
		return stats, fmt.Errorf("merger: writing output: %w", err)
	}
	outClosed = true
	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("merger: closing output: %w", err)
	}

	stats.CleanupErr = Cleanup(context.WithoutCancel(ctx), m.storage, runs, m.opts.DeleteConcurrency, m.logger)
	return stats, nil
}

func (m *Merger) mergeHeap(ctx context.Context, sources []*source, w *countingWriter) error {
	pq := priority.NewQueue[int, record.Entry](m.opts.FanIn, record.Entry.Less)

	for i, src := range sources {
		if e, ok := src.next(); ok {
			pq.Set(i, e)
		} else if err := m.readErr(src); err != nil {
			return err
		}
	}

	for pq.Len() > 0 {
		i, e, _ := pq.Pop()
		// Keep writing from run i while it stays ahead of every other run.
		for {
			if err := w.write(e.Key); err != nil {
				return err
			}
			if w.records%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("merger: %w", err)
				}
			}

			next, ok := sources[i].next()
			if !ok {
				if err := m.readErr(sources[i]); err != nil {
					return err
				}
				break
			}
			if _, top, exists := pq.Peek(); exists && top.Less(next) {
				pq.Set(i, next)
				break
			}
			e = next
		}
	}
	return nil
}

func (m *Merger) mergeTournament(ctx context.Context, sources []*source, w *countingWriter) error {
	sequences := make([]loser.Sequence[record.Entry], 0, len(sources))
	for _, src := range sources {
		sequences = append(sequences, src)
	}

	var err error
	for e := range loser.New(sequences, record.MaxEntry).All() {
		if err = w.write(e.Key); err != nil {
			break
		}
		if w.records%cancelCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				err = fmt.Errorf("merger: %w", err)
				break
			}
		}
	}
	if err != nil {
		return err
	}

	// A source that failed to read stops early; the merge is then incomplete.
	for _, src := range sources {
		if err := m.readErr(src); err != nil {
			return err
		}
	}
	return nil
}

func (m *Merger) readErr(src *source) error {
	if err := src.reader.Err(); err != nil {
		return fmt.Errorf("merger: reading %s: %w", m.storage.Name(src.run.Index), err)
	}
	return nil
}

// Cleanup deletes runs concurrently. A failed deletion does not stop the
// others; all failures are returned together.
func Cleanup(ctx context.Context, s storage.Storage, runs []storage.Run, concurrency int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultDeleteConcurrency
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(concurrency)
	for _, run := range runs {
		g.Go(func() error {
			if err := s.Delete(ctx, run.Index); err != nil {
				logger.Warn("failed to delete run", zap.String("run", s.Name(run.Index)), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

type countingWriter struct {
	w       *bufio.Writer
	scratch [24]byte
	records int64
	bytes   int64
}

func (c *countingWriter) write(rec record.Record) error {
	n, err := c.w.Write(recordio.Append(c.scratch[:0], rec))
	c.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("merger: writing output: %w", err)
	}
	c.records++
	return nil
}
