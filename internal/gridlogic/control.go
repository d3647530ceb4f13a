package gridlogic

import (
	"github.com/realthrust/extension/internal/parser"
	"github.com/realthrust/extension/internal/roster"
	"github.com/realthrust/extension/internal/thruster"
	"github.com/realthrust/extension/pkg/host"
)

func (l *Logic) isPlayerControlled(players roster.View) bool {
	controlled := false
	players.Range(func(p host.Player) bool {
		if l.controlsGrid(p) {
			controlled = true
			return false
		}
		return true
	})
	return controlled
}

func (l *Logic) controlsGrid(p host.Player) bool {
	if p == nil || p.IsBot() {
		return false
	}
	character := p.Character()
	if character == nil {
		return false
	}
	block, ok := p.ControlledEntity().(host.Block)
	if !ok {
		return false
	}

	switch host.Classify(block) {
	case host.ClassController:
		c := block.(host.ShipController)
		return c.EnableShipControl() && l.onGrid(c) && c.HasFlightAuthority()
	case host.ClassTurret:
		if !block.(host.Turret).IsUnderControl() || !l.onGrid(block) {
			return false
		}
		seat, ok := character.Parent().(host.ShipController)
		return ok && seat.EnableShipControl() && l.onGrid(seat)
	}
	return false
}

func (l *Logic) onGrid(b host.Block) bool {
	g := b.Grid()
	return g != nil && g.EntityID() == l.gridID
}

func (l *Logic) hasDroneAI() bool {
	drone := false
	l.controllers.Range(func(_ host.EntityID, c *controller) bool {
		if rc, ok := c.block.(host.RemoteControl); ok && rc.AutopilotActive() {
			drone = true
			return false
		}
		return true
	})
	return drone
}

// isNPCOwned caches its answer per primary owner until the owner changes or
// FactionEdited is called.
func (l *Logic) isNPCOwned() bool {
	owner := primaryOwner(l.grid)
	if owner == host.NoIdentity {
		l.lastCheckedOwner = host.NoIdentity
		l.npcOwned = false
		return false
	}
	if owner == l.lastCheckedOwner {
		return l.npcOwned
	}

	l.lastCheckedOwner = owner
	l.npcOwned = false
	if l.deps.Factions == nil {
		return false
	}
	faction := l.deps.Factions.PlayerFaction(owner)
	switch {
	case faction == nil:
	case parser.HasForceRealistic(faction.PrivateInfo()):
	default:
		l.npcOwned = faction.IsEveryoneNPC()
	}
	return l.npcOwned
}

var _ ThrusterSource = (*thruster.Registry)(nil)
