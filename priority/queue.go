package priority

type item[K comparable, V any] struct {
	key   K
	value V
	index int
}

// Queue is a binary heap of values addressed by key. A key is held at most
// once; setting it again updates its value in place.
type Queue[K comparable, V any] struct {
	items   []*item[K, V]
	itemMap map[K]*item[K, V]
	lessF   func(a, b V) bool // returns true if a has higher priority than b
}

// NewQueue creates a queue with room for size keys before it grows.
func NewQueue[K comparable, V any](size int, less func(a, b V) bool) *Queue[K, V] {
	if size < 0 {
		size = 0
	}
	return &Queue[K, V]{
		items:   make([]*item[K, V], 0, size),
		itemMap: make(map[K]*item[K, V], size),
		lessF:   less,
	}
}

// Len returns the number of items in the queue.
func (pq *Queue[K, V]) Len() int {
	return len(pq.items)
}

// Set adds a new key or updates an existing key's value.
func (pq *Queue[K, V]) Set(key K, value V) {
	if i, exists := pq.itemMap[key]; exists {
		old := i.value
		i.value = value
		if pq.lessF(value, old) {
			pq.up(i.index)
		} else {
			pq.down(i.index)
		}
		return
	}

	i := &item[K, V]{key: key, value: value, index: len(pq.items)}
	pq.items = append(pq.items, i)
	pq.itemMap[key] = i
	pq.up(i.index)
}

// Remove removes the given key from the queue.
func (pq *Queue[K, V]) Remove(key K) {
	i, exists := pq.itemMap[key]
	if !exists {
		return
	}
	delete(pq.itemMap, key)

	last := len(pq.items) - 1
	idx := i.index
	if idx != last {
		pq.swap(idx, last)
	}
	pq.items[last] = nil
	pq.items = pq.items[:last]
	if idx < last {
		pq.down(idx)
		pq.up(idx)
	}
}

// Pop removes and returns the highest priority item.
func (pq *Queue[K, V]) Pop() (key K, value V, exists bool) {
	if len(pq.items) == 0 {
		return key, value, false
	}
	i := pq.items[0]
	pq.Remove(i.key)
	return i.key, i.value, true
}

// Peek returns the highest priority item without removing it.
func (pq *Queue[K, V]) Peek() (key K, value V, exists bool) {
	if len(pq.items) == 0 {
		return key, value, false
	}
	i := pq.items[0]
	return i.key, i.value, true
}

func (pq *Queue[K, V]) swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *Queue[K, V]) less(i, j int) bool {
	return pq.lessF(pq.items[i].value, pq.items[j].value)
}

func (pq *Queue[K, V]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.less(i, parent) {
			return
		}
		pq.swap(i, parent)
		i = parent
	}
}

func (pq *Queue[K, V]) down(i int) {
	n := len(pq.items)
	for {
		top := i
		if left := 2*i + 1; left < n && pq.less(left, top) {
			top = left
		}
		if right := 2*i + 2; right < n && pq.less(right, top) {
			top = right
		}
		if top == i {
			return
		}
		pq.swap(i, top)
		i = top
	}
}
