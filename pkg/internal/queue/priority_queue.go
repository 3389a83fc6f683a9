package queue

import (
	"container/heap"
	"context"
	"sync"
)

// item is a queued value with its priority
type item[T any] struct {
	value    T
	priority int    // higher runs first
	seq      uint64 // FIFO among equal priorities
}

// PriorityQueue is a blocking priority queue. Items of equal priority leave in push order.
type PriorityQueue[T any] struct {
	mu     sync.Mutex
	items  itemHeap[T]
	seq    uint64
	notify chan struct{}
}

// NewPriorityQueue creates a new priority queue
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{notify: make(chan struct{}, 1)}
}

// Push adds an item to the queue
func (pq *PriorityQueue[T]) Push(value T, priority int) {
	pq.mu.Lock()
	pq.seq++
	heap.Push(&pq.items, &item[T]{value: value, priority: priority, seq: pq.seq})
	pq.mu.Unlock()

	select {
	case pq.notify <- struct{}{}:
	default:
	}
}

// TryPop removes the highest priority item if one is queued
func (pq *PriorityQueue[T]) TryPop() (T, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if pq.items.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&pq.items).(*item[T]).value, true
}

// Pop blocks until an item is available or ctx is done
func (pq *PriorityQueue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok := pq.TryPop(); ok {
			return v, nil
		}
		select {
		case <-pq.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of items in the queue
func (pq *PriorityQueue[T]) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.items.Len()
}

// Drain removes and returns every queued item in priority order
func (pq *PriorityQueue[T]) Drain() []T {
	var out []T
	for {
		v, ok := pq.TryPop()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

type itemHeap[T any] []*item[T]

func (h itemHeap[T]) Len() int { return len(h) }

func (h itemHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap[T]) Push(x any) { *h = append(*h, x.(*item[T])) }

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
