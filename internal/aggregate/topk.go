package aggregate

import (
	"container/heap"
	"sort"

	"github.com/VN1SH/reclaim/internal/fsitem"
)

// itemHeap is a min-heap of at most k items keyed by size, so tracking
// the k largest files costs O(k) memory and O(log k) per insert.
type itemHeap struct {
	k     int
	items []fsitem.ClassifiedItem
}

func newItemHeap(k int) *itemHeap {
	return &itemHeap{k: k}
}

func (h *itemHeap) Len() int { return len(h.items) }

func (h *itemHeap) Less(i, j int) bool {
	if h.items[i].Size != h.items[j].Size {
		return h.items[i].Size < h.items[j].Size
	}
	// Larger paths evict first so ties stay deterministic.
	return h.items[i].Path > h.items[j].Path
}

func (h *itemHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *itemHeap) Push(x any) { h.items = append(h.items, x.(fsitem.ClassifiedItem)) }

func (h *itemHeap) Pop() any {
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return last
}

func (h *itemHeap) push(item fsitem.ClassifiedItem) {
	if len(h.items) < h.k {
		heap.Push(h, item)
		return
	}
	min := h.items[0]
	if item.Size > min.Size || (item.Size == min.Size && item.Path < min.Path) {
		h.items[0] = item
		heap.Fix(h, 0)
	}
}

// sortedDesc drains the heap into a largest-first slice.
func (h *itemHeap) sortedDesc() []fsitem.ClassifiedItem {
	out := make([]fsitem.ClassifiedItem, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Path < out[j].Path
	})
	return out
}
