// Package gormstore implements the storage backend over gorm, for both
// Postgres and SQLite connections opened by the database package.
package gormstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/realthrust/extension/internal/database"
	"github.com/realthrust/extension/pkg/core"
)

// Backend writes records through a database connection.
type Backend struct {
	db *database.Conn
}

// New creates a backend over an open connection.
func New(db *database.Conn) *Backend {
	return &Backend{db: db}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	return b.db.Migrate(Models...)
}

// Close closes the connection, dumping an in-memory database if configured.
func (b *Backend) Close() error {
	return b.db.Close()
}

// RecordTransition inserts t.
func (b *Backend) RecordTransition(t *core.Transition) error {
	if err := b.db.DB.Create(transitionRecord(t)).Error; err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	return nil
}

// RecordFleetStats inserts s.
func (b *Backend) RecordFleetStats(s *core.FleetStats) error {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding fleet stats: %w", err)
	}
	rec := &FleetStatsRecord{
		Session:         s.Session,
		Time:            s.Time,
		Tick:            s.Tick,
		ActiveGrids:     s.ActiveGrids,
		ActiveThrusters: s.ActiveThrusters,
		RosterSize:      s.RosterSize,
		Snapshot:        snapshot,
	}
	if err := b.db.DB.Create(rec).Error; err != nil {
		return fmt.Errorf("inserting fleet stats: %w", err)
	}
	return nil
}

// RecentTransitions returns up to limit transitions, newest first.
func (b *Backend) RecentTransitions(limit int) ([]core.Transition, error) {
	var rows []TransitionRecord
	q := b.db.DB.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}

	out := make([]core.Transition, len(rows))
	for i := range rows {
		out[i] = rows[i].toCore()
	}
	return out, nil
}

// LatestFleetStats decodes the newest snapshot.
func (b *Backend) LatestFleetStats() (core.FleetStats, bool, error) {
	var rec FleetStatsRecord
	err := b.db.DB.Order("id desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.FleetStats{}, false, nil
	}
	if err != nil {
		return core.FleetStats{}, false, fmt.Errorf("querying fleet stats: %w", err)
	}

	var stats core.FleetStats
	if err := json.Unmarshal(rec.Snapshot, &stats); err != nil {
		return core.FleetStats{}, false, fmt.Errorf("decoding fleet stats: %w", err)
	}
	return stats, true, nil
}
