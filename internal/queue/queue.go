// Package queue provides the deferred work queue used wherever a collection
// cannot be mutated while it is being iterated.
package queue

// Queue is a generic FIFO. It is not safe for concurrent use; everything that
// touches it runs on the simulation thread.
type Queue[T any] struct {
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.items = append(q.items, items...)
}

// Pop removes and returns the first item. ok is false if the queue was empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Items returns the queued items without removing them. The slice is only
// valid until the next mutation.
func (q *Queue[T]) Items() []T {
	return q.items
}

// Clear removes all items from the queue, keeping capacity.
func (q *Queue[T]) Clear() {
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.items = q.items[:0]
}

// Drain pops every item in order and passes it to fn. Items pushed by fn are
// drained in the same call.
func (q *Queue[T]) Drain(fn func(T)) {
	for {
		item, ok := q.Pop()
		if !ok {
			break
		}
		fn(item)
	}
	// Pop reslices forward; reclaim the backing array once empty.
	q.items = q.items[:0:0]
}
