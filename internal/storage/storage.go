// Package storage persists realism transitions and fleet snapshots.
package storage

import "github.com/realthrust/extension/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Record methods may be called from a goroutine other than the one that
// called Init.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	RecordTransition(t *core.Transition) error
	RecordFleetStats(s *core.FleetStats) error
}

// Querier is an optional interface for backends that can read back what they
// recorded.
type Querier interface {
	// RecentTransitions returns up to limit transitions, newest first.
	RecentTransitions(limit int) ([]core.Transition, error)
	// LatestFleetStats returns the newest snapshot. ok is false if none was recorded.
	LatestFleetStats() (stats core.FleetStats, ok bool, err error)
}
