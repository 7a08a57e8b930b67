package ttlcache

// insertionHeap orders entries by insertion time, then by sequence number so
// entries inserted at the same instant evict in insertion order.
type insertionHeap[K comparable, V any] []*entry[K, V]

func (h insertionHeap[K, V]) less(a, b *entry[K, V]) bool {
	if a.insertedAt.Equal(b.insertedAt) {
		return a.seq < b.seq
	}
	return a.insertedAt.Before(b.insertedAt)
}

func (h insertionHeap[K, V]) Len() int           { return len(h) }
func (h insertionHeap[K, V]) Less(i, j int) bool { return h.less(h[i], h[j]) }

func (h insertionHeap[K, V]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *insertionHeap[K, V]) Push(x any) {
	e := x.(*entry[K, V])
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *insertionHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
