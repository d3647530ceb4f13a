// Package set provides the membership sets grid logic keeps for thrusters and controllers.
//
// Engine events can arrive twice, out of order, or from inside a handler that is
// itself iterating the set, so every mutation is add-if-absent or
// remove-if-present, and removals requested during Range are deferred until the
// outermost Range returns.
package set

import "github.com/realthrust/extension/internal/queue"

// Set is an indexed membership set. Values live in a dense slice; removal swaps
// the last element into the hole, so iteration order is insertion order only
// until the first removal.
type Set[K comparable, V any] struct {
	keys    []K
	values  []V
	index   map[K]int
	ranging int
	pending map[K]struct{}
	removed *queue.Queue[K]
}

// New creates an empty set.
func New[K comparable, V any]() *Set[K, V] {
	return &Set[K, V]{
		index:   make(map[K]int),
		pending: make(map[K]struct{}),
		removed: queue.New[K](),
	}
}

// Add inserts v under k. It returns false and leaves the set unchanged if k is
// already present.
func (s *Set[K, V]) Add(k K, v V) bool {
	if _, ok := s.pending[k]; ok {
		// re-added before a deferred removal ran
		delete(s.pending, k)
		s.values[s.index[k]] = v
		return true
	}
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.keys)
	s.keys = append(s.keys, k)
	s.values = append(s.values, v)
	return true
}

// Remove deletes k. It returns false if k was not present. While a Range is in
// progress the element is hidden immediately and physically removed afterwards.
func (s *Set[K, V]) Remove(k K) bool {
	if !s.Contains(k) {
		return false
	}
	if s.ranging > 0 {
		s.pending[k] = struct{}{}
		s.removed.Push(k)
		return true
	}
	s.removeAt(s.index[k])
	return true
}

func (s *Set[K, V]) removeAt(i int) {
	last := len(s.keys) - 1
	delete(s.index, s.keys[i])
	if i != last {
		s.keys[i] = s.keys[last]
		s.values[i] = s.values[last]
		s.index[s.keys[i]] = i
	}
	var zeroK K
	var zeroV V
	s.keys[last] = zeroK
	s.values[last] = zeroV
	s.keys = s.keys[:last]
	s.values = s.values[:last]
}

// Contains reports membership, ignoring elements pending removal.
func (s *Set[K, V]) Contains(k K) bool {
	if _, ok := s.pending[k]; ok {
		return false
	}
	_, ok := s.index[k]
	return ok
}

// Get returns the value stored under k.
func (s *Set[K, V]) Get(k K) (v V, ok bool) {
	if !s.Contains(k) {
		return v, false
	}
	return s.values[s.index[k]], true
}

// Len returns the number of live elements.
func (s *Set[K, V]) Len() int {
	return len(s.keys) - len(s.pending)
}

// Range calls fn for each live element present when Range started, stopping
// early if fn returns false. fn may Add or Remove freely.
func (s *Set[K, V]) Range(fn func(K, V) bool) {
	s.ranging++
	defer s.endRange()

	n := len(s.keys)
	for i := 0; i < n && i < len(s.keys); i++ {
		k := s.keys[i]
		if _, ok := s.pending[k]; ok {
			continue
		}
		if !fn(k, s.values[i]) {
			return
		}
	}
}

func (s *Set[K, V]) endRange() {
	s.ranging--
	if s.ranging > 0 {
		return
	}
	s.removed.Drain(func(k K) {
		if _, ok := s.pending[k]; !ok {
			return
		}
		delete(s.pending, k)
		if i, ok := s.index[k]; ok {
			s.removeAt(i)
		}
	})
}

// Values returns a copy of the live values.
func (s *Set[K, V]) Values() []V {
	out := make([]V, 0, s.Len())
	s.Range(func(_ K, v V) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Clear removes everything. Calling Clear from inside Range defers like Remove.
func (s *Set[K, V]) Clear() {
	if s.ranging > 0 {
		for _, k := range s.keys {
			s.Remove(k)
		}
		return
	}
	clear(s.index)
	clear(s.pending)
	s.removed.Clear()
	clear(s.keys)
	clear(s.values)
	s.keys = s.keys[:0]
	s.values = s.values[:0]
}
