// Package merger implements the second phase of an external sort: a single
// k-way merge of sorted runs into one sorted output.
//
// Two selection strategies are available. Heap keeps one pending record per
// run in an indexed binary heap. Tournament replays a loser tree. Both break
// ties between equal records by run index, so the output is deterministic.
//
// After a successful merge the runs are deleted concurrently. A run that
// cannot be deleted is logged and reported in Stats.CleanupErr without
// failing the merge.
package merger
