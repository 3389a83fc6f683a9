package telemetry

import (
	"sync"
	"sync/atomic"
)

// Sequenced is implemented by entries that carry a ring-assigned id
type Sequenced[T any] interface {
	WithID(id uint64) T
}

// Ring is a bounded FIFO. When full, a push evicts the oldest entry.
// Ids come from a counter that advances on every attempt, including dropped ones.
type Ring[T Sequenced[T]] struct {
	mu    sync.RWMutex
	buf   []T
	start int
	n     int

	next atomic.Uint64
}

// NewRing creates a ring holding at most capacity entries
func NewRing[T Sequenced[T]](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Capacity returns the maximum number of entries held
func (r *Ring[T]) Capacity() int {
	return len(r.buf)
}

// Push waits for the write lock and inserts v with a fresh id
func (r *Ring[T]) Push(v T) T {
	v = v.WithID(r.next.Add(1))
	r.mu.Lock()
	r.insert(v)
	r.mu.Unlock()
	return v
}

// TryPush inserts v only if the write lock is free. The id is consumed either way.
func (r *Ring[T]) TryPush(v T) (T, bool) {
	v = v.WithID(r.next.Add(1))
	if !r.mu.TryLock() {
		return v, false
	}
	r.insert(v)
	r.mu.Unlock()
	return v, true
}

func (r *Ring[T]) insert(v T) {
	if r.n == len(r.buf) {
		r.buf[r.start] = v
		r.start = (r.start + 1) % len(r.buf)
		return
	}
	r.buf[(r.start+r.n)%len(r.buf)] = v
	r.n++
}

// Snapshot returns a copy of the held entries, oldest first
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of held entries
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n
}
