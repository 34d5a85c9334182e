package producer

import (
	"slices"

	"github.com/davidvella/xsort/record"
	"github.com/google/btree"
)

// Buffer accumulates the records of one run in memory and hands them back in
// ascending order.
type Buffer interface {
	Add(rec record.Record)
	// Len returns the number of records added since the last Reset.
	Len() int
	// Ascend calls fn for each record in ascending order until fn returns false.
	Ascend(fn func(record.Record) bool)
	Reset()
}

// SliceBuffer appends records and sorts them when the run is written.
type SliceBuffer struct {
	records []record.Record
	sorted  bool
}

func NewSliceBuffer() *SliceBuffer {
	return &SliceBuffer{}
}

func (b *SliceBuffer) Add(rec record.Record) {
	b.records = append(b.records, rec)
	b.sorted = false
}

func (b *SliceBuffer) Len() int {
	return len(b.records)
}

func (b *SliceBuffer) Ascend(fn func(record.Record) bool) {
	if !b.sorted {
		slices.Sort(b.records)
		b.sorted = true
	}
	for _, rec := range b.records {
		if !fn(rec) {
			return
		}
	}
}

func (b *SliceBuffer) Reset() {
	b.records = b.records[:0]
	b.sorted = true
}

type bucket struct {
	key   record.Record
	count int
}

// TreeBuffer keeps records ordered as they arrive. Equal records share one
// node, which keeps inputs with many duplicates compact.
type TreeBuffer struct {
	tree *btree.BTreeG[bucket]
	n    int
}

func NewTreeBuffer() *TreeBuffer {
	return &TreeBuffer{
		tree: btree.NewG[bucket](32, func(a, b bucket) bool {
			return a.key.Less(b.key)
		}),
	}
}

func (b *TreeBuffer) Add(rec record.Record) {
	item := bucket{key: rec, count: 1}
	if existing, ok := b.tree.Get(item); ok {
		item.count = existing.count + 1
	}
	b.tree.ReplaceOrInsert(item)
	b.n++
}

func (b *TreeBuffer) Len() int {
	return b.n
}

func (b *TreeBuffer) Ascend(fn func(record.Record) bool) {
	b.tree.Ascend(func(item bucket) bool {
		for i := 0; i < item.count; i++ {
			if !fn(item.key) {
				return false
			}
		}
		return true
	})
}

func (b *TreeBuffer) Reset() {
	b.tree.Clear(true)
	b.n = 0
}
