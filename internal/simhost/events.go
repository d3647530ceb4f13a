package simhost

import "github.com/realthrust/extension/pkg/host"

// handlers is an ordered list of callbacks that can be cancelled individually.
type handlers[T any] struct {
	next  int
	order []int
	fns   map[int]func(T)
}

func (h *handlers[T]) add(fn func(T)) host.CancelFunc {
	if h.fns == nil {
		h.fns = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.fns[id] = fn
	h.order = append(h.order, id)
	return func() {
		if _, ok := h.fns[id]; !ok {
			return
		}
		delete(h.fns, id)
		for i, v := range h.order {
			if v == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
}

func (h *handlers[T]) fire(v T) {
	ids := append([]int(nil), h.order...)
	for _, id := range ids {
		if fn, ok := h.fns[id]; ok {
			fn(v)
		}
	}
}

func (h *handlers[T]) len() int {
	return len(h.fns)
}
