package record

import (
	"cmp"
	"math"
)

// Max sorts after every other record. Merge structures use it to mark an
// exhausted source.
const Max Record = math.MaxInt64

// Record is a signed integer key with natural ordering and no payload.
type Record int64

func (r Record) Less(t Record) bool {
	return r < t
}

func (r Record) Compare(t Record) int {
	return cmp.Compare(r, t)
}

// Entry is a record tagged with the index of the run it was read from.
type Entry struct {
	Key    Record
	Source int
}

// MaxEntry sorts after every entry that can be read from a run.
var MaxEntry = Entry{Key: Max, Source: math.MaxInt}

// Less orders entries by key, then by ascending source index, so a merge of
// equal keys from different runs is reproducible.
func (e Entry) Less(t Entry) bool {
	if c := cmp.Compare(e.Key, t.Key); c != 0 {
		return c < 0
	}
	return e.Source < t.Source
}
