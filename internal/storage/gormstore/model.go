package gormstore

import (
	"time"

	"gorm.io/datatypes"

	"github.com/realthrust/extension/pkg/core"
)

// TransitionRecord is the row for one realism change.
type TransitionRecord struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Session  string    `json:"session" gorm:"size:36;index:idx_transition_session"`
	Time     time.Time `json:"time" gorm:"index:idx_transition_time"`
	Tick     uint64    `json:"tick"`
	GridID   int64     `json:"gridId" gorm:"index:idx_transition_grid_id"`
	GridName string    `json:"gridName" gorm:"size:255"`
	OwnerID  int64     `json:"ownerId"`
	From     float64   `json:"from"`
	To       float64   `json:"to"`
	Reason   string    `json:"reason" gorm:"size:32"`
}

// TableName sets the table name
func (*TransitionRecord) TableName() string {
	return "realism_transitions"
}

// FleetStatsRecord is the row for one scheduler snapshot. The headline numbers
// are columns; Snapshot keeps the full record.
type FleetStatsRecord struct {
	ID              uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Session         string         `json:"session" gorm:"size:36;index:idx_fleet_stats_session"`
	Time            time.Time      `json:"time" gorm:"index:idx_fleet_stats_time"`
	Tick            uint64         `json:"tick"`
	ActiveGrids     int            `json:"activeGrids"`
	ActiveThrusters int            `json:"activeThrusters"`
	RosterSize      int            `json:"rosterSize"`
	Snapshot        datatypes.JSON `json:"snapshot"`
}

// TableName sets the table name
func (*FleetStatsRecord) TableName() string {
	return "fleet_stats"
}

// Models lists every table this package migrates.
var Models = []any{
	&TransitionRecord{},
	&FleetStatsRecord{},
}

func transitionRecord(t *core.Transition) *TransitionRecord {
	return &TransitionRecord{
		Session:  t.Session,
		Time:     t.Time,
		Tick:     t.Tick,
		GridID:   t.GridID,
		GridName: t.GridName,
		OwnerID:  t.OwnerID,
		From:     t.From,
		To:       t.To,
		Reason:   string(t.Reason),
	}
}

func (r *TransitionRecord) toCore() core.Transition {
	return core.Transition{
		Session:  r.Session,
		Time:     r.Time,
		Tick:     r.Tick,
		GridID:   r.GridID,
		GridName: r.GridName,
		OwnerID:  r.OwnerID,
		From:     r.From,
		To:       r.To,
		Reason:   core.Reason(r.Reason),
	}
}
