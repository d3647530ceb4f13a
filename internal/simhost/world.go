// Package simhost is an in-memory implementation of the host interfaces. It
// drives the soak harness in cmd/fleetsim and the package tests.
package simhost

import (
	"github.com/realthrust/extension/pkg/host"
	"github.com/realthrust/extension/pkg/vmath"
)

// AppliedForce is one recorded ApplyForce call.
type AppliedForce struct {
	Grid  host.EntityID
	Force vmath.Vector3
	At    vmath.Vector3
}

// World holds players, factions and the forces submitted to it.
type World struct {
	nextID host.EntityID

	players  []*Player
	factions map[int64]*Faction
	members  map[host.IdentityID]*Faction

	Forces []AppliedForce
	// PlayerQueries counts calls to Players.
	PlayerQueries int
	// FactionQueries counts calls to PlayerFaction.
	FactionQueries int
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		nextID:   1000,
		factions: make(map[int64]*Faction),
		members:  make(map[host.IdentityID]*Faction),
	}
}

// NextID hands out entity ids.
func (w *World) NextID() host.EntityID {
	w.nextID++
	return w.nextID
}

// Players implements host.PlayerSource.
func (w *World) Players(dst []host.Player) []host.Player {
	w.PlayerQueries++
	for _, p := range w.players {
		dst = append(dst, p)
	}
	return dst
}

// Connect adds a player.
func (w *World) Connect(p *Player) {
	w.players = append(w.players, p)
}

// Disconnect removes a player.
func (w *World) Disconnect(p *Player) {
	for i, v := range w.players {
		if v == p {
			w.players = append(w.players[:i], w.players[i+1:]...)
			return
		}
	}
}

// AddFaction registers f and makes members part of it.
func (w *World) AddFaction(f *Faction, members ...host.IdentityID) {
	w.factions[f.ID] = f
	for _, m := range members {
		w.members[m] = f
	}
}

// PlayerFaction implements host.FactionRegistry.
func (w *World) PlayerFaction(id host.IdentityID) host.Faction {
	w.FactionQueries++
	if f, ok := w.members[id]; ok {
		return f
	}
	return nil
}

// Faction implements host.FactionRegistry.
func (w *World) Faction(id int64) host.Faction {
	if f, ok := w.factions[id]; ok {
		return f
	}
	return nil
}

// ApplyForce implements host.ForceApplicator.
func (w *World) ApplyForce(grid host.Grid, force, at vmath.Vector3) {
	w.Forces = append(w.Forces, AppliedForce{Grid: grid.EntityID(), Force: force, At: at})
}

// ResetForces clears the recorded forces.
func (w *World) ResetForces() {
	w.Forces = w.Forces[:0]
}

// Faction is a simulated faction.
type Faction struct {
	ID          int64
	FactionTag  string
	EveryoneNPC bool
	Private     string
}

func (f *Faction) FactionID() int64    { return f.ID }
func (f *Faction) Tag() string         { return f.FactionTag }
func (f *Faction) IsEveryoneNPC() bool { return f.EveryoneNPC }
func (f *Faction) PrivateInfo() string { return f.Private }

// Player is a simulated player.
type Player struct {
	Identity   host.IdentityID
	Name       string
	Bot        bool
	Body       *Character
	Controlled host.Entity
}

func (p *Player) IdentityID() host.IdentityID { return p.Identity }
func (p *Player) DisplayName() string         { return p.Name }
func (p *Player) IsBot() bool                 { return p.Bot }

func (p *Player) Character() host.Character {
	if p.Body == nil {
		return nil
	}
	return p.Body
}

func (p *Player) ControlledEntity() host.Entity {
	return p.Controlled
}

// Character is a simulated player body.
type Character struct {
	ID   host.EntityID
	Seat host.Entity
}

func (c *Character) EntityID() host.EntityID { return c.ID }
func (c *Character) Parent() host.Entity     { return c.Seat }
