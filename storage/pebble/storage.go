package pebble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/davidvella/xsort/storage"
)

const (
	runNamespace     = "run/"
	defaultChunkSize = 256 * 1024
)

var ErrWriterClosed = errors.New("pebble: run writer closed")

// Storage keeps runs in a Pebble database. Each run is a key range of
// fixed-size chunks holding the run's line-encoded records in order.
type Storage struct {
	db          *pebble.DB
	chunkSize   int
	deleteRange func(lower, upper []byte) error
	mu          sync.Mutex
	created     map[int]struct{}
}

// StorageOptions configures the storage.
type StorageOptions struct {
	// Path of the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps the database in memory.
	InMemory bool
	// ChunkSize is the number of bytes buffered per key.
	ChunkSize    int
	CacheSize    int64
	MaxOpenFiles int
}

func NewStorage(opts StorageOptions) (*Storage, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 8 << 20
	}

	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	pebbleOpts := &pebble.Options{
		Cache:        cache,
		MaxOpenFiles: opts.MaxOpenFiles,
	}

	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
	} else if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := pebble.Open(opts.Path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("pebble: failed to open %s: %w", opts.Path, err)
	}

	return &Storage{
		db:        db,
		chunkSize: opts.ChunkSize,
		deleteRange: func(lower, upper []byte) error {
			return db.DeleteRange(lower, upper, pebble.NoSync)
		},
		created: make(map[int]struct{}),
	}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Name(index int) string {
	return fmt.Sprintf("%s%d", runNamespace, index)
}

func (s *Storage) Create(_ context.Context, index int) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.created[index]; exists {
		return nil, fmt.Errorf("failed to create %s: %w", s.Name(index), storage.ErrRunExists)
	}
	s.created[index] = struct{}{}

	return &runWriter{
		db:    s.db,
		index: index,
		buf:   make([]byte, 0, s.chunkSize),
	}, nil
}

func (s *Storage) Open(_ context.Context, index int) (io.ReadCloser, error) {
	s.mu.Lock()
	_, exists := s.created[index]
	s.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("failed to open %s: %w", s.Name(index), os.ErrNotExist)
	}

	lower, upper := runBounds(index)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Name(index), err)
	}
	it.First()

	return &runReader{it: it}, nil
}

func (s *Storage) Delete(_ context.Context, index int) error {
	s.mu.Lock()
	_, exists := s.created[index]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("failed to delete %s: %w", s.Name(index), os.ErrNotExist)
	}

	// The run stays registered until its keys are gone, so a failed delete
	// can be retried.
	lower, upper := runBounds(index)
	if err := s.deleteRange(lower, upper); err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.Name(index), err)
	}

	s.mu.Lock()
	delete(s.created, index)
	s.mu.Unlock()
	return nil
}

// Len returns the number of runs that exist.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// chunkKey builds "run/" + big-endian index + big-endian chunk number, so a
// run's chunks are contiguous and ordered.
func chunkKey(index int, chunk uint64) []byte {
	key := make([]byte, 0, len(runNamespace)+16)
	key = append(key, runNamespace...)
	key = binary.BigEndian.AppendUint64(key, uint64(index))
	return binary.BigEndian.AppendUint64(key, chunk)
}

func runBounds(index int) (lower, upper []byte) {
	lower = append([]byte(runNamespace), binary.BigEndian.AppendUint64(nil, uint64(index))...)
	upper = append([]byte(runNamespace), binary.BigEndian.AppendUint64(nil, uint64(index)+1)...)
	return lower, upper
}

type runWriter struct {
	db     *pebble.DB
	index  int
	chunk  uint64
	buf    []byte
	closed bool
}

func (w *runWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	written := 0
	for len(p) > 0 {
		n := min(cap(w.buf)-len(w.buf), len(p))
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		written += n
		if len(w.buf) == cap(w.buf) {
			if err := w.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (w *runWriter) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if err := w.db.Set(chunkKey(w.index, w.chunk), w.buf, pebble.NoSync); err != nil {
		return fmt.Errorf("pebble: failed to write chunk %d of run %d: %w", w.chunk, w.index, err)
	}
	w.chunk++
	w.buf = w.buf[:0]
	return nil
}

func (w *runWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.flush()
}

type runReader struct {
	it      *pebble.Iterator
	pending []byte
}

func (r *runReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if !r.it.Valid() {
			if err := r.it.Error(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		r.pending = r.it.Value()
		if len(r.pending) == 0 {
			r.it.Next()
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	if len(r.pending) == 0 {
		r.it.Next()
	}
	return n, nil
}

func (r *runReader) Close() error {
	return r.it.Close()
}
