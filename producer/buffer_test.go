package producer

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/davidvella/xsort/record"
	"github.com/stretchr/testify/assert"
)

func drain(b Buffer) []record.Record {
	out := make([]record.Record, 0, b.Len())
	b.Ascend(func(rec record.Record) bool {
		out = append(out, rec)
		return true
	})
	return out
}

func TestBuffers(t *testing.T) {
	tests := []struct {
		name  string
		input []record.Record
	}{
		{name: "empty", input: []record.Record{}},
		{name: "single", input: []record.Record{42}},
		{name: "duplicates", input: []record.Record{7, 7, 7, 7}},
		{name: "mixed signs", input: []record.Record{5, -3, 8, 3, -3, 1, 0}},
		{name: "already sorted", input: []record.Record{1, 2, 3, 4}},
		{name: "reversed", input: []record.Record{4, 3, 2, 1}},
	}

	for _, tt := range tests {
		for _, b := range []Buffer{NewSliceBuffer(), NewTreeBuffer()} {
			t.Run(tt.name, func(t *testing.T) {
				for _, rec := range tt.input {
					b.Add(rec)
				}
				want := slices.Clone(tt.input)
				slices.Sort(want)

				assert.Equal(t, len(tt.input), b.Len())
				assert.Equal(t, want, drain(b))

				b.Reset()
				assert.Equal(t, 0, b.Len())
				assert.Empty(t, drain(b))
			})
		}
	}
}

func TestBuffers_StopEarly(t *testing.T) {
	for _, b := range []Buffer{NewSliceBuffer(), NewTreeBuffer()} {
		for _, rec := range []record.Record{3, 1, 1, 2} {
			b.Add(rec)
		}

		var got []record.Record
		b.Ascend(func(rec record.Record) bool {
			got = append(got, rec)
			return len(got) < 2
		})

		assert.Equal(t, []record.Record{1, 1}, got)
	}
}

func TestBuffers_Reuse(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	slice, tree := NewSliceBuffer(), NewTreeBuffer()

	for round := 0; round < 5; round++ {
		for i := 0; i < 200; i++ {
			rec := record.Record(rng.Intn(50) - 25)
			slice.Add(rec)
			tree.Add(rec)
		}
		assert.Equal(t, drain(slice), drain(tree), "round %d", round)
		slice.Reset()
		tree.Reset()
	}
}
