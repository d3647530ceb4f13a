// Package thruster re-applies a thruster's force at its real position so an
// off-center thruster produces torque.
//
// The engine applies every thruster's force as if it acted on the grid's center
// of mass. Each physics tick an active Unit cancels a fraction of that force at
// the grid group's center of mass and applies the same fraction at the
// thruster's own position. The fraction is the realism amount set by grid logic.
package thruster

import (
	"math"

	"github.com/realthrust/extension/pkg/host"
)

// Epsilon is the threshold under which realism amounts and force magnitudes
// count as zero.
const Epsilon = 1e-6

// Unit is the per-thruster logic.
type Unit struct {
	block      host.Thrust
	applicator host.ForceApplicator

	realism     float64
	needsUpdate bool

	cancelWorking host.CancelFunc
	onActivity    func(u *Unit, active bool)
	owner         any
}

func newUnit(block host.Thrust, applicator host.ForceApplicator, onActivity func(*Unit, bool)) *Unit {
	u := &Unit{
		block:      block,
		applicator: applicator,
		onActivity: onActivity,
	}
	u.cancelWorking = block.OnIsWorkingChanged(u.workingChanged)
	return u
}

// Owner returns whoever last acquired the unit.
func (u *Unit) Owner() any {
	return u.owner
}

// Block returns the thruster block.
func (u *Unit) Block() host.Thrust {
	return u.block
}

// RealismAmount returns the last value passed to SetRealismAmount.
func (u *Unit) RealismAmount() float64 {
	return u.realism
}

// NeedsUpdate reports whether the unit does work each physics tick.
func (u *Unit) NeedsUpdate() bool {
	return u.needsUpdate
}

// SetRealismAmount stores the amount, 0 meaning engine default and 1 meaning
// fully realistic. Per-tick work is enabled only for a non-negligible amount
// on a working thruster.
func (u *Unit) SetRealismAmount(amount float64) {
	u.realism = amount
	u.setNeedsUpdate(amount > Epsilon && u.block.IsWorking())
}

func (u *Unit) setNeedsUpdate(v bool) {
	if u.needsUpdate == v {
		return
	}
	u.needsUpdate = v
	if u.onActivity != nil {
		u.onActivity(u, v)
	}
}

func (u *Unit) workingChanged(host.Block) {
	u.SetRealismAmount(u.realism)
}

// UpdateBeforeSimulation submits this tick's force pair. It returns true if
// forces were applied.
func (u *Unit) UpdateBeforeSimulation() bool {
	if u.realism <= Epsilon || !u.block.IsWorking() {
		return false
	}

	grid := u.block.Grid()
	if grid == nil || grid.IsPreview() {
		return false
	}
	physics := grid.Physics()
	if physics == nil || !physics.Enabled() || physics.IsStatic() {
		return false
	}

	strength := u.block.ForceMagnitude() * u.block.CurrentStrength() * u.realism
	if math.Abs(strength) <= Epsilon {
		return false
	}

	matrix := u.block.WorldMatrix()
	force := matrix.Backward().Scale(strength)

	u.applicator.ApplyForce(grid, force.Negate(), grid.GroupCenterOfMass())
	u.applicator.ApplyForce(grid, force, matrix.Translation)
	return true
}

// close drops the working-state subscription and deactivates the unit.
func (u *Unit) close() {
	if u.cancelWorking != nil {
		u.cancelWorking()
		u.cancelWorking = nil
	}
	u.setNeedsUpdate(false)
	u.onActivity = nil
	u.owner = nil
}
