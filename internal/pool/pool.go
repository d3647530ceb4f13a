// Package pool is a free-list for stateful objects that are recycled instead of
// reallocated.
//
// Unlike sync.Pool nothing is ever dropped behind the caller's back, and Release
// runs the reset hook before the object becomes available again, so Acquire never
// hands out an object still carrying a previous occupant's state.
package pool

// Pool is a LIFO free-list. Not safe for concurrent use.
type Pool[T any] struct {
	newFn   func() T
	resetFn func(T)
	free    []T
	created int
}

// New creates a pool. newFn allocates a fresh object; resetFn clears an object
// being returned and may be nil.
func New[T any](newFn func() T, resetFn func(T)) *Pool[T] {
	return &Pool[T]{newFn: newFn, resetFn: resetFn}
}

// Acquire returns a free object, allocating one if the free-list is empty.
func (p *Pool[T]) Acquire() T {
	if n := len(p.free); n > 0 {
		obj := p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		return obj
	}
	p.created++
	return p.newFn()
}

// Release resets obj and puts it on the free-list.
func (p *Pool[T]) Release(obj T) {
	if p.resetFn != nil {
		p.resetFn(obj)
	}
	p.free = append(p.free, obj)
}

// Free returns the number of objects waiting on the free-list.
func (p *Pool[T]) Free() int {
	return len(p.free)
}

// Created returns how many objects the pool has ever allocated.
func (p *Pool[T]) Created() int {
	return p.created
}
