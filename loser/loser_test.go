package loser_test

import (
	"iter"
	"math/rand"
	"slices"
	"testing"

	"github.com/davidvella/xsort/loser"
	"github.com/davidvella/xsort/record"
	"github.com/stretchr/testify/assert"
)

type List[E loser.Lesser[E]] struct {
	list []E
}

func NewList[E loser.Lesser[E]](list ...E) *List[E] {
	return &List[E]{list: list}
}

func (it *List[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, i := range it.list {
			if !yield(i) {
				return
			}
		}
	}
}

func collect[E loser.Lesser[E]](s loser.Sequence[E]) []E {
	out := make([]E, 0)
	for v := range s.All() {
		out = append(out, v)
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		args []loser.Sequence[record.Record]
		want []record.Record
	}{
		{
			name: "empty input",
			want: []record.Record{},
		},
		{
			name: "one list",
			args: []loser.Sequence[record.Record]{NewList[record.Record](1, 2, 3, 4)},
			want: []record.Record{1, 2, 3, 4},
		},
		{
			name: "two lists",
			args: []loser.Sequence[record.Record]{NewList[record.Record](3, 4, 5), NewList[record.Record](1, 2)},
			want: []record.Record{1, 2, 3, 4, 5},
		},
		{
			name: "two lists, first empty",
			args: []loser.Sequence[record.Record]{NewList[record.Record](), NewList[record.Record](1, 2)},
			want: []record.Record{1, 2},
		},
		{
			name: "two lists, second empty",
			args: []loser.Sequence[record.Record]{NewList[record.Record](1, 2), NewList[record.Record]()},
			want: []record.Record{1, 2},
		},
		{
			name: "all lists empty",
			args: []loser.Sequence[record.Record]{NewList[record.Record](), NewList[record.Record]()},
			want: []record.Record{},
		},
		{
			name: "three lists",
			args: []loser.Sequence[record.Record]{NewList[record.Record](1, 3), NewList[record.Record](2, 4), NewList[record.Record](5)},
			want: []record.Record{1, 2, 3, 4, 5},
		},
		{
			name: "negative values and duplicates",
			args: []loser.Sequence[record.Record]{NewList[record.Record](-7, 0, 7), NewList[record.Record](-7, 7, 7)},
			want: []record.Record{-7, -7, 0, 7, 7, 7},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := loser.New(tt.args, record.Max)
			assert.Equal(t, tt.want, collect[record.Record](lt))
		})
	}
}

func TestMergeEntriesTieBreak(t *testing.T) {
	// Five sources each holding the same key; output must follow source order.
	seqs := make([]loser.Sequence[record.Entry], 0, 5)
	for src := 0; src < 5; src++ {
		seqs = append(seqs, NewList(record.Entry{Key: 4, Source: src}, record.Entry{Key: 9, Source: src}))
	}

	got := collect[record.Entry](loser.New(seqs, record.MaxEntry))

	want := make([]record.Entry, 0, 10)
	for _, k := range []record.Record{4, 9} {
		for src := 0; src < 5; src++ {
			want = append(want, record.Entry{Key: k, Source: src})
		}
	}
	assert.Equal(t, want, got)
}

func TestMergeRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, k := range []int{1, 2, 3, 7, 16, 33} {
		seqs := make([]loser.Sequence[record.Record], 0, k)
		var want []record.Record
		for i := 0; i < k; i++ {
			run := make([]record.Record, rng.Intn(50))
			for j := range run {
				run[j] = record.Record(rng.Int63n(200) - 100)
			}
			slices.Sort(run)
			want = append(want, run...)
			seqs = append(seqs, NewList(run...))
		}
		slices.Sort(want)
		if want == nil {
			want = []record.Record{}
		}

		got := collect[record.Record](loser.New(seqs, record.Max))
		assert.Equal(t, want, got, "k=%d", k)
	}
}

func TestMergeStopEarly(t *testing.T) {
	lt := loser.New([]loser.Sequence[record.Record]{
		NewList[record.Record](1, 3, 5),
		NewList[record.Record](2, 4, 6),
	}, record.Max)

	var got []record.Record
	for v := range lt.All() {
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}

	assert.Equal(t, []record.Record{1, 2, 3}, got)
	assert.Equal(t, 2, lt.Len())
}
