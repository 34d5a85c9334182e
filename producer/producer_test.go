package producer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/davidvella/xsort/producer"
	"github.com/davidvella/xsort/record"
	"github.com/davidvella/xsort/recordio"
	"github.com/davidvella/xsort/storage"
	"github.com/davidvella/xsort/storage/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorage implements storage.Storage for testing.
type MockStorage struct {
	createFunc func(ctx context.Context, index int) (io.WriteCloser, error)
}

func (m *MockStorage) Create(ctx context.Context, index int) (io.WriteCloser, error) {
	return m.createFunc(ctx, index)
}

func (m *MockStorage) Open(context.Context, int) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (m *MockStorage) Delete(context.Context, int) error {
	return nil
}

func (m *MockStorage) Name(index int) string {
	return fmt.Sprintf("mock/%d", index)
}

// MockWriteCloser implements io.WriteCloser for testing.
type MockWriteCloser struct {
	writeFunc func(p []byte) (int, error)
	closed    bool
}

func (m *MockWriteCloser) Write(p []byte) (int, error) {
	return m.writeFunc(p)
}

func (m *MockWriteCloser) Close() error {
	m.closed = true
	return nil
}

func buffers() map[string]func() producer.Buffer {
	return map[string]func() producer.Buffer{
		"slice": func() producer.Buffer { return producer.NewSliceBuffer() },
		"tree":  func() producer.Buffer { return producer.NewTreeBuffer() },
	}
}

func readRuns(t *testing.T, s storage.Storage, runs []storage.Run) [][]record.Record {
	t.Helper()

	out := make([][]record.Record, 0, len(runs))
	for _, run := range runs {
		r, err := s.Open(context.Background(), run.Index)
		require.NoError(t, err)
		recs, err := recordio.ReadRecords(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		out = append(out, recs)
	}
	return out
}

func TestProducer_Produce(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		runSize  int64
		wantRuns [][]record.Record
	}{
		{
			name:     "two records per run",
			input:    "5\n3\n8\n3\n1\n",
			runSize:  4,
			wantRuns: [][]record.Record{{3, 5}, {3, 8}, {1}},
		},
		{
			name:     "single run",
			input:    "5\n3\n8\n",
			runSize:  1 << 20,
			wantRuns: [][]record.Record{{3, 5, 8}},
		},
		{
			name:     "run per record",
			input:    "2\n1\n",
			runSize:  1,
			wantRuns: [][]record.Record{{2}, {1}},
		},
		{
			name:     "budget overshoots by one line",
			input:    "10\n9\n8\n7\n",
			runSize:  4,
			wantRuns: [][]record.Record{{9, 10}, {7, 8}},
		},
		{
			name:     "trailing blank line",
			input:    "4\n2\n\n",
			runSize:  2,
			wantRuns: [][]record.Record{{4}, {2}},
		},
		{
			name:     "empty input",
			input:    "",
			runSize:  4,
			wantRuns: [][]record.Record{},
		},
	}

	for _, tt := range tests {
		for bufName, newBuffer := range buffers() {
			t.Run(tt.name+"/"+bufName, func(t *testing.T) {
				s := local.NewLocalStorage(t.TempDir())
				p, err := producer.New(s, producer.Options{RunSize: tt.runSize, Buffer: newBuffer()})
				require.NoError(t, err)

				runs, err := p.Produce(context.Background(), strings.NewReader(tt.input))
				require.NoError(t, err)

				assert.Equal(t, tt.wantRuns, readRuns(t, s, runs))
				for i, run := range runs {
					assert.Equal(t, i, run.Index)
					assert.Equal(t, int64(len(tt.wantRuns[i])), run.Records)
				}
			})
		}
	}
}

func TestProducer_RunCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var sb strings.Builder
	var total int64
	for i := 0; i < 1000; i++ {
		// Fixed-width records, so every run holds exactly runSize bytes.
		rec := record.Record(1000 + rng.Intn(9000))
		total += recordio.Size(rec)
		_, _ = recordio.Write(&sb, rec)
	}

	for _, runSize := range []int64{5, 50, 55, 2500, 5000, 1 << 20} {
		t.Run(fmt.Sprint(runSize), func(t *testing.T) {
			s := local.NewLocalStorage(t.TempDir())
			p, err := producer.New(s, producer.Options{RunSize: runSize})
			require.NoError(t, err)

			runs, err := p.Produce(context.Background(), strings.NewReader(sb.String()))
			require.NoError(t, err)

			want := (total + runSize - 1) / runSize
			assert.Equal(t, want, int64(len(runs)))

			var records, bytes int64
			for _, run := range readRuns(t, s, runs) {
				assert.True(t, slices.IsSorted(run))
			}
			for _, run := range runs {
				records += run.Records
				bytes += run.Bytes
			}
			assert.Equal(t, int64(1000), records)
			assert.Equal(t, total, bytes)
		})
	}
}

func TestProducer_FormatError(t *testing.T) {
	s := local.NewLocalStorage(t.TempDir())
	p, err := producer.New(s, producer.Options{RunSize: 2})
	require.NoError(t, err)

	runs, err := p.Produce(context.Background(), strings.NewReader("1\n2\nthree\n4\n"))

	require.Error(t, err)
	assert.ErrorIs(t, err, recordio.ErrFormat)
	assert.Len(t, runs, 2, "runs written before the bad line are reported")
}

func TestProducer_MaxRuns(t *testing.T) {
	s := local.NewLocalStorage(t.TempDir())
	p, err := producer.New(s, producer.Options{RunSize: 2, MaxRuns: 2})
	require.NoError(t, err)

	runs, err := p.Produce(context.Background(), strings.NewReader("1\n2\n3\n"))

	assert.ErrorIs(t, err, producer.ErrTooManyRuns)
	assert.Len(t, runs, 2)
}

func TestProducer_StorageErrors(t *testing.T) {
	errStorage := errors.New("storage error")
	errWrite := errors.New("disk full")

	tests := []struct {
		name    string
		storage func(w *MockWriteCloser) *MockStorage
		wantErr error
	}{
		{
			name: "failed to create run",
			storage: func(*MockWriteCloser) *MockStorage {
				return &MockStorage{createFunc: func(context.Context, int) (io.WriteCloser, error) {
					return nil, errStorage
				}}
			},
			wantErr: errStorage,
		},
		{
			name: "failed to write run",
			storage: func(w *MockWriteCloser) *MockStorage {
				w.writeFunc = func([]byte) (int, error) { return 0, errWrite }
				return &MockStorage{createFunc: func(context.Context, int) (io.WriteCloser, error) {
					return w, nil
				}}
			},
			wantErr: errWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &MockWriteCloser{}
			p, err := producer.New(tt.storage(w), producer.Options{RunSize: 100, BufferSize: 16})
			require.NoError(t, err)

			runs, err := p.Produce(context.Background(), strings.NewReader("3\n1\n2\n"))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, runs)
			if w.writeFunc != nil {
				assert.True(t, w.closed, "run writer must be closed on error")
			}
		})
	}
}

func TestProducer_Canceled(t *testing.T) {
	s := local.NewLocalStorage(t.TempDir())
	p, err := producer.New(s, producer.Options{RunSize: 4})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runs, err := p.Produce(ctx, strings.NewReader("1\n2\n"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runs)
}

func TestNew_InvalidOptions(t *testing.T) {
	s := local.NewLocalStorage(t.TempDir())

	_, err := producer.New(s, producer.Options{RunSize: 0})
	assert.ErrorIs(t, err, producer.ErrInvalidRunSize)

	_, err = producer.New(s, producer.Options{RunSize: -1})
	assert.ErrorIs(t, err, producer.ErrInvalidRunSize)

	_, err = producer.New(s, producer.Options{RunSize: 1, MaxRuns: -1})
	assert.Error(t, err)
}
