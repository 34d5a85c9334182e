package recordio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/davidvella/xsort/record"
)

const (
	// DefaultBufferSize is the I/O buffer size used when none is given.
	DefaultBufferSize = 1 << 20

	newline = '\n'
)

var ErrFormat = errors.New("recordio: invalid record")

// FormatError reports a line that is not a decimal integer.
type FormatError struct {
	Line int
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("recordio: line %d: invalid record %q: %v", e.Line, e.Text, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Append appends the line encoding of rec to dst.
func Append(dst []byte, rec record.Record) []byte {
	dst = strconv.AppendInt(dst, int64(rec), 10)
	return append(dst, newline)
}

// Write writes a single record as one decimal line.
func Write(w io.Writer, rec record.Record) (int64, error) {
	var scratch [24]byte
	n, err := w.Write(Append(scratch[:0], rec))
	if err != nil {
		return int64(n), fmt.Errorf("error writing record: %w", err)
	}
	return int64(n), nil
}

// Parse decodes one line without its terminator. A trailing carriage return is
// ignored.
func Parse(line []byte) (record.Record, error) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	v, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, err
	}
	return record.Record(v), nil
}

// Size calculates the number of bytes a record occupies when written: its
// decimal digits, a sign for negative values, and the line terminator.
func Size(rec record.Record) int64 {
	v := int64(rec)
	size := int64(1)
	if v < 0 {
		size++
		if v == -v {
			// math.MinInt64 has no positive counterpart.
			return size + 19
		}
		v = -v
	}
	for {
		size++
		v /= 10
		if v == 0 {
			return size
		}
	}
}

// Reader reads records from newline-delimited decimal text. A blank line is
// accepted only at the end of the stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	blank   int
	current record.Record
	err     error
}

func NewReader(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Reader{
		scanner: bufio.NewScanner(bufio.NewReaderSize(r, size)),
	}
}

// Next advances to the next record. It returns false at the end of the stream
// or on the first error, which Err reports.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Bytes()
		if len(text) == 0 || (len(text) == 1 && text[0] == '\r') {
			if r.blank == 0 {
				r.blank = r.line
			}
			continue
		}
		if r.blank != 0 {
			r.err = &FormatError{Line: r.blank, Err: errors.New("blank line before end of input")}
			return false
		}
		rec, err := Parse(text)
		if err != nil {
			r.err = &FormatError{Line: r.line, Text: string(text), Err: err}
			return false
		}
		r.current = rec
		return true
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			// No valid record comes near the scanner's token limit.
			r.err = &FormatError{Line: r.line + 1, Err: err}
			return false
		}
		r.err = fmt.Errorf("recordio: read after line %d: %w", r.line, err)
	}
	return false
}

// Record returns the record read by the last successful call to Next.
func (r *Reader) Record() record.Record {
	return r.current
}

// Err returns the first error encountered, or nil at a clean end of stream.
func (r *Reader) Err() error {
	return r.err
}

// All creates an iterator over the remaining records. Check Err once the
// iteration ends.
func (r *Reader) All() iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		for r.Next() {
			if !yield(r.current) {
				return
			}
		}
	}
}

// ReadRecords reads all records into a slice.
func ReadRecords(r io.Reader) ([]record.Record, error) {
	reader := NewReader(r, 0)
	records := make([]record.Record, 0, 1)
	for rec := range reader.All() {
		records = append(records, rec)
	}
	return records, reader.Err()
}
