// Package loser implements a tournament tree (also known as a loser tree) for efficiently
// merging multiple sorted sequences. This implementation is based on the work by Bryan
// Boreham (https://github.com/bboreham/go-loser).
//
// A loser tree is a binary tree structure where each internal node holds the "loser" of
// a comparison between its children, and the root holds the overall "winner". Replacing
// the winner only replays the games on its path to the root, so each merged value costs
// O(log k) comparisons for k sequences, and only one value per sequence is held at a time.
//
// Basic usage:
//
//	// Create sorted sequences of entries tagged with their source
//	seq1 := NewList(record.Entry{Key: 1, Source: 0}, record.Entry{Key: 5, Source: 0})
//	seq2 := NewList(record.Entry{Key: 2, Source: 1})
//
//	// Create a loser tree to merge the sequences
//	tree := loser.New([]loser.Sequence[record.Entry]{seq1, seq2}, record.MaxEntry)
//
//	// Iterate over merged results
//	for e := range tree.All() {
//	    fmt.Println(e.Key) // 1, 2, 5
//	}
//
// Implementation Details:
// The loser tree is implemented as a binary tree laid out in an array where:
//   - For node N, its children are at positions 2N and 2N+1
//   - Leaf nodes are stored in positions M to 2M-1 (where M is the number of sequences)
//   - Internal nodes are stored in positions 1 to M-1
//   - Node 0 is special, containing the current winner
//
// An exhausted sequence holds the maximum value passed to New, so it loses every
// game against a live sequence. Merging stops when the winner is exhausted.
package loser
