package search

import "math/rand"

// evictionWindow is how far behind the write position a full queue may
// overwrite.
const evictionWindow = 10

// Queue is a fixed-capacity FIFO ring. Once full, new entries overwrite a
// random slot among the most recently written ones, so the frontier keeps
// advancing while older entries are still served first.
type Queue[T any] struct {
	buf   []T
	read  int
	write int
	size  int
	rng   *rand.Rand
}

func NewQueue[T any](capacity int, rng *rand.Rand) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{buf: make([]T, capacity), rng: rng}
}

func (q *Queue[T]) Add(v T) {
	if q.size < len(q.buf) {
		q.buf[q.write] = v
		q.write = (q.write + 1) % len(q.buf)
		q.size++
		return
	}
	r := q.rng.Intn(min(evictionWindow, len(q.buf))) + 1
	q.buf[(q.write+len(q.buf)-r)%len(q.buf)] = v
}

// Poll removes the oldest entry. It returns false when the queue is empty.
func (q *Queue[T]) Poll() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	v := q.buf[q.read]
	q.buf[q.read] = zero
	q.read = (q.read + 1) % len(q.buf)
	q.size--
	return v, true
}

func (q *Queue[T]) Len() int      { return q.size }
func (q *Queue[T]) Cap() int      { return len(q.buf) }
func (q *Queue[T]) HasNext() bool { return q.size > 0 }
func (q *Queue[T]) Full() bool    { return q.size == len(q.buf) }
