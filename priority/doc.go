// Package priority implements a keyed priority queue: a binary heap whose
// entries are addressed by a comparable key, so each key appears at most once.
//
// The merger keys the queue by run index. That keeps at most one pending
// record per run in memory and lets the queue be sized to the fan-in degree
// up front.
//
// Key features:
//   - Generic over any comparable key type and any value type
//   - O(log n) insertion, update and removal
//   - O(1) peek and key lookup
//
// Basic usage:
//
//	// Create a min-heap sized for three keys
//	pq := priority.NewQueue[int, int](3, func(a, b int) bool {
//	    return a < b
//	})
//
//	pq.Set(0, 5)
//	pq.Set(1, 3)
//	pq.Set(2, 7)
//
//	// Remove and return highest priority item
//	key, value, exists := pq.Pop() // 1, 3, true
//
//	// Setting an existing key updates its priority
//	pq.Set(0, 1)
//
// The less function should return true if a has higher priority than b.
package priority
