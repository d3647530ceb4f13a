// Package core holds the records the extension reports to its storage backends.
package core

import "time"

// Reason names the rule that decided a grid's realism level.
type Reason string

const (
	ReasonOverride    Reason = "override"
	ReasonDroneAI     Reason = "drone-ai"
	ReasonPlayer      Reason = "player"
	ReasonNPCOwned    Reason = "npc-owned"
	ReasonPlayerOwned Reason = "player-owned"
)

// Transition is a change of one grid's realism level.
type Transition struct {
	// Session identifies the run that recorded the change.
	Session  string    `json:"session,omitempty"`
	Time     time.Time `json:"time"`
	Tick     uint64    `json:"tick"`
	GridID   int64     `json:"gridId"`
	GridName string    `json:"gridName"`
	OwnerID  int64     `json:"ownerId"`
	From     float64   `json:"from"`
	To       float64   `json:"to"`
	Reason   Reason    `json:"reason"`
}

// FleetStats is a snapshot of the scheduler.
type FleetStats struct {
	Session          string    `json:"session,omitempty"`
	Time             time.Time `json:"time"`
	Tick             uint64    `json:"tick"`
	ActiveGrids      int       `json:"activeGrids"`
	PooledGrids      int       `json:"pooledGrids"`
	Thrusters        int       `json:"thrusters"`
	ActiveThrusters  int       `json:"activeThrusters"`
	Controllers      int       `json:"controllers"`
	UpdatesThisTick  int       `json:"updatesThisTick"`
	RemovedThisTick  int       `json:"removedThisTick"`
	RosterSize       int       `json:"rosterSize"`
	RealisticGrids   int       `json:"realisticGrids"`
	TransitionsTotal uint64    `json:"transitionsTotal"`
}
