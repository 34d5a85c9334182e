// Package recordio implements the text record format shared by sort input,
// run files and sort output: one signed decimal integer per line, terminated
// by '\n'.
//
// Basic usage:
//
//	// Writing a record
//	var buf bytes.Buffer
//	n, err := recordio.Write(&buf, record.Record(42))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Reading records
//	r := recordio.NewReader(&buf, recordio.DefaultBufferSize)
//	for rec := range r.All() {
//	    fmt.Println(rec)
//	}
//	if err := r.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Calculate record size
//	size := recordio.Size(record.Record(42)) // 3
//
// Lines that do not parse as a base-10 int64 are reported as *FormatError,
// which matches ErrFormat with errors.Is. A carriage return before the line
// terminator is ignored, and blank lines are accepted only at the end of the
// stream.
package recordio
