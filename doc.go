// Package xsort sorts newline-delimited decimal integers that do not fit in
// memory, using a two-phase external merge sort.
//
// The first phase cuts the input into runs of a fixed serialized size, sorts
// each run in memory and writes it to its own slot in temporary storage. The
// second phase merges every run at once into the output. The fan-in degree is
// derived from the input size as ceil(input bytes / run size), which is never
// less than the number of runs produced, so each run keeps its own slot.
//
// Basic usage:
//
//	s, err := xsort.NewSorter(xsort.WithRunSize(64 << 20))
//	if err != nil {
//	    return err
//	}
//	stats, err := s.Sort(ctx, "input.txt", "sorted.txt")
package xsort
