package gridlogic

import (
	"fmt"

	"github.com/realthrust/extension/internal/parser"
	"github.com/realthrust/extension/pkg/host"
)

func (l *Logic) blockAdded(b host.Block) {
	defer l.guard("block added", nil)
	if b == nil {
		return
	}

	switch host.Classify(b) {
	case host.ClassThruster:
		l.addThruster(b.(host.Thrust))
	case host.ClassController:
		l.addController(b.(host.ShipController))
	}
}

func (l *Logic) blockRemoved(b host.Block) {
	defer l.guard("block removed", nil)
	if b == nil {
		return
	}

	switch host.Classify(b) {
	case host.ClassThruster:
		t := b.(host.Thrust)
		if l.thrusters.Remove(t.EntityID()) && l.deps.Thrusters != nil {
			l.deps.Thrusters.Release(t, l)
		}
	case host.ClassController:
		l.removeController(b.EntityID())
	}
}

func (l *Logic) addThruster(t host.Thrust) {
	id := t.EntityID()
	if l.thrusters.Contains(id) || l.deps.Thrusters == nil {
		return
	}
	u := l.deps.Thrusters.Acquire(t, l)
	if u == nil {
		return
	}
	l.thrusters.Add(id, u)
	u.SetRealismAmount(l.realism)
}

func (l *Logic) addController(b host.ShipController) {
	id := b.EntityID()
	if l.controllers.Contains(id) {
		return
	}

	c := &controller{block: b, override: l.parseOverride(b)}
	c.cancels[0] = b.OnCustomDataChanged(l.controllerChanged)
	c.cancels[1] = b.OnOwnershipChanged(l.controllerChanged)
	c.cancels[2] = b.OnMarkedForClose(l.controllerClosing)
	l.controllers.Add(id, c)

	// A newly added block cannot take over an override that is already in
	// force; first match wins.
	if l.override.Active() {
		return
	}
	l.recomputeOverride()
}

func (l *Logic) removeController(id host.EntityID) {
	c, ok := l.controllers.Get(id)
	if !ok {
		return
	}
	c.unsubscribe()
	l.controllers.Remove(id)
	l.recomputeOverride()
}

func (l *Logic) controllerChanged(b host.Block) {
	defer l.guard("controller changed", nil)
	if b == nil {
		return
	}
	c, ok := l.controllers.Get(b.EntityID())
	if !ok {
		return
	}
	c.override = l.parseOverride(c.block)
	l.recomputeOverride()
}

func (l *Logic) controllerClosing(e host.Entity) {
	defer l.guard("controller closing", nil)

	c, ok := e.(host.ShipController)
	if !ok {
		l.log.Error("Unexpected entity in controller close notification",
			"grid", int64(l.gridID),
			"type", fmt.Sprintf("%T", e))
		return
	}
	l.removeController(c.EntityID())
}

func (l *Logic) parseOverride(b host.ShipController) parser.Override {
	o, err := parser.ParseOverride(b.CustomData())
	if err != nil {
		l.log.Warn("Ignoring realism tag",
			"grid", int64(l.gridID),
			"controller", int64(b.EntityID()),
			"err", err)
	}
	return o
}

// recomputeOverride takes the first tagged controller owned by the grid's
// primary owner, in controller-set order.
func (l *Logic) recomputeOverride() {
	l.override = parser.Override{}
	l.overrideOwner = host.NoIdentity
	if l.grid == nil {
		return
	}

	owner := primaryOwner(l.grid)
	l.overrideOwner = owner
	if owner == host.NoIdentity {
		return
	}

	l.controllers.Range(func(_ host.EntityID, c *controller) bool {
		if c.block.OwnerID() != owner || !c.override.Active() {
			return true
		}
		l.override = c.override
		return false
	})
}

func (c *controller) unsubscribe() {
	for i, cancel := range c.cancels {
		if cancel != nil {
			cancel()
			c.cancels[i] = nil
		}
	}
}
