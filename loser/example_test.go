package loser_test

import (
	"fmt"

	"github.com/davidvella/xsort/loser"
	"github.com/davidvella/xsort/record"
)

// ExampleNew_basic demonstrates basic usage of a loser tree to merge sorted sequences.
func ExampleNew_basic() {
	seq1 := NewList[record.Record](1, 4, 7)
	seq2 := NewList[record.Record](2, 5, 8)
	seq3 := NewList[record.Record](3, 6, 9)

	tree := loser.New([]loser.Sequence[record.Record]{seq1, seq2, seq3}, record.Max)

	for v := range tree.All() {
		fmt.Printf("%d ", v)
	}

	// Output: 1 2 3 4 5 6 7 8 9
}

// ExampleNew_entries shows equal keys leaving the tree in source order.
func ExampleNew_entries() {
	seq0 := NewList(record.Entry{Key: 3, Source: 0}, record.Entry{Key: 5, Source: 0})
	seq1 := NewList(record.Entry{Key: 3, Source: 1}, record.Entry{Key: 8, Source: 1})
	seq2 := NewList(record.Entry{Key: 1, Source: 2})

	tree := loser.New([]loser.Sequence[record.Entry]{seq0, seq1, seq2}, record.MaxEntry)

	for e := range tree.All() {
		fmt.Printf("%d/%d ", e.Key, e.Source)
	}

	// Output: 1/2 3/0 3/1 5/0 8/1
}

// ExampleNew_empty demonstrates handling empty sequences.
func ExampleNew_empty() {
	seq1 := NewList[record.Record](1, 3, 5)
	seq2 := NewList[record.Record]()
	seq3 := NewList[record.Record](2, 4)

	tree := loser.New([]loser.Sequence[record.Record]{seq1, seq2, seq3}, record.Max)

	for v := range tree.All() {
		fmt.Printf("%d ", v)
	}

	// Output: 1 2 3 4 5
}
