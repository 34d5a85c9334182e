// Package storage defines where sorted runs live between the two sort phases.
//
// A run is created once, written by exactly one writer, closed, then opened by
// exactly one reader and finally deleted. Implementations never hand out a
// run index twice within one Storage.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrRunExists = errors.New("storage: run already exists")

// Storage holds run files addressed by run index.
type Storage interface {
	// Create a new run for writing. Creating an index that already exists fails
	// with ErrRunExists.
	Create(ctx context.Context, index int) (io.WriteCloser, error)
	// Open a closed run for reading.
	Open(ctx context.Context, index int) (io.ReadCloser, error)
	// Delete a run after it has been merged.
	Delete(ctx context.Context, index int) error
	// Name identifies a run in errors and logs.
	Name(index int) string
}

// Run describes one sorted run written during the first phase.
type Run struct {
	Index   int
	Records int64
	Bytes   int64
}
