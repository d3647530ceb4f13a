// Package memory keeps the most recent records in bounded in-process buffers.
package memory

import (
	"sync"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/pkg/core"
)

// ring is a fixed-capacity buffer that overwrites its oldest element.
type ring[T any] struct {
	items []T
	next  int
	full  bool
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.items[r.next] = v
	r.next++
	if r.next == len(r.items) {
		r.next = 0
		r.full = true
	}
}

func (r *ring[T]) len() int {
	if r.full {
		return len(r.items)
	}
	return r.next
}

// newest returns up to limit items, newest first.
func (r *ring[T]) newest(limit int) []T {
	n := r.len()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]T, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (r.next - 1 - i + len(r.items)) % len(r.items)
		out = append(out, r.items[idx])
	}
	return out
}

// Backend stores records in memory.
type Backend struct {
	cfg         config.MemoryConfig
	transitions *ring[core.Transition]
	stats       *ring[core.FleetStats]
	dropped     uint64
	mu          sync.RWMutex
}

// New creates a new memory backend. A non-positive capacity is treated as 1.
func New(cfg config.MemoryConfig) *Backend {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	return &Backend{
		cfg:         cfg,
		transitions: newRing[core.Transition](cfg.Capacity),
		stats:       newRing[core.FleetStats](cfg.Capacity),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// RecordTransition stores t, evicting the oldest transition when full.
func (b *Backend) RecordTransition(t *core.Transition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.transitions.full {
		b.dropped++
	}
	b.transitions.push(*t)
	return nil
}

// RecordFleetStats stores s, evicting the oldest snapshot when full.
func (b *Backend) RecordFleetStats(s *core.FleetStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.push(*s)
	return nil
}

// RecentTransitions returns up to limit transitions, newest first. A
// non-positive limit returns everything held.
func (b *Backend) RecentTransitions(limit int) ([]core.Transition, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transitions.newest(limit), nil
}

// LatestFleetStats returns the newest snapshot.
func (b *Backend) LatestFleetStats() (core.FleetStats, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stats.len() == 0 {
		return core.FleetStats{}, false, nil
	}
	return b.stats.newest(1)[0], true, nil
}

// Len returns the number of transitions held.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transitions.len()
}

// Dropped returns how many transitions were evicted.
func (b *Backend) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
