package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrOutputClosed = errors.New("output already published or aborted")

// Output writes to a hidden file beside the destination and renames it into
// place on Publish, so a failed sort never touches an existing destination.
type Output struct {
	path   string
	file   *os.File
	closed bool
	done   bool
}

func CreateOutput(path string) (*Output, error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create output for %s: %w", path, err)
	}
	if err := file.Chmod(0o644); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, fmt.Errorf("failed to create output for %s: %w", path, err)
	}
	return &Output{path: path, file: file}, nil
}

// Path returns the destination path.
func (o *Output) Path() string {
	return o.path
}

// TempPath returns the path written to before publishing.
func (o *Output) TempPath() string {
	return o.file.Name()
}

func (o *Output) Write(p []byte) (int, error) {
	return o.file.Write(p)
}

// Close syncs and closes the temporary file. It is safe to call more than once.
func (o *Output) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.file.Sync(); err != nil {
		o.file.Close()
		return fmt.Errorf("failed to sync output %s: %w", o.file.Name(), err)
	}
	return o.file.Close()
}

// Publish closes the output if needed and renames it to the destination.
func (o *Output) Publish() error {
	if o.done {
		return ErrOutputClosed
	}
	if err := o.Close(); err != nil {
		return err
	}
	o.done = true
	if err := os.Rename(o.file.Name(), o.path); err != nil {
		os.Remove(o.file.Name())
		return fmt.Errorf("failed to publish output %s: %w", o.path, err)
	}
	return nil
}

// Abort discards the temporary file. Calling it after Publish does nothing.
func (o *Output) Abort() error {
	if o.done {
		return nil
	}
	o.done = true
	o.Close()
	if err := os.Remove(o.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove output %s: %w", o.file.Name(), err)
	}
	return nil
}
