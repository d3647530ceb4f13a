package simhost

import (
	"github.com/realthrust/extension/pkg/host"
	"github.com/realthrust/extension/pkg/vmath"
)

// Thruster is a simulated thrust block.
type Thruster struct {
	ID       host.EntityID
	Parent   *Grid
	Working  bool
	MaxForce float64
	Throttle float64
	Matrix   vmath.Matrix

	working handlers[host.Block]
}

// NewThruster returns a working thruster at full throttle, pushing along
// forward. Backward is its force direction.
func NewThruster(w *World, maxForce float64, position, forward vmath.Vector3) *Thruster {
	return &Thruster{
		ID:       w.NextID(),
		Working:  true,
		MaxForce: maxForce,
		Throttle: 1,
		Matrix:   vmath.Matrix{Forward: forward, Up: vmath.Vector3{Y: 1}, Translation: position},
	}
}

func (t *Thruster) EntityID() host.EntityID   { return t.ID }
func (t *Thruster) Grid() host.Grid           { return gridOf(t.Parent) }
func (t *Thruster) IsWorking() bool           { return t.Working }
func (t *Thruster) ForceMagnitude() float64   { return t.MaxForce }
func (t *Thruster) CurrentStrength() float64  { return t.Throttle }
func (t *Thruster) WorldMatrix() vmath.Matrix { return t.Matrix }

func (t *Thruster) OnIsWorkingChanged(fn func(host.Block)) host.CancelFunc {
	return t.working.add(fn)
}

// SetWorking changes the working state and notifies subscribers.
func (t *Thruster) SetWorking(v bool) {
	t.Working = v
	t.working.fire(t)
}

// Subscribers returns the number of live working-changed handlers.
func (t *Thruster) Subscribers() int {
	return t.working.len()
}

// Controller is a simulated cockpit or seat.
type Controller struct {
	ID              host.EntityID
	Parent          *Grid
	Owner           host.IdentityID
	Data            string
	ShipControl     bool
	FlightAuthority bool

	customData handlers[host.Block]
	ownership  handlers[host.Block]
	closing    handlers[host.Entity]
}

// NewController returns a cockpit owned by owner that allows ship control.
func NewController(w *World, owner host.IdentityID, customData string) *Controller {
	return &Controller{
		ID:          w.NextID(),
		Owner:       owner,
		Data:        customData,
		ShipControl: true,
	}
}

func (c *Controller) EntityID() host.EntityID  { return c.ID }
func (c *Controller) Grid() host.Grid          { return gridOf(c.Parent) }
func (c *Controller) OwnerID() host.IdentityID { return c.Owner }
func (c *Controller) CustomData() string       { return c.Data }
func (c *Controller) EnableShipControl() bool  { return c.ShipControl }
func (c *Controller) HasFlightAuthority() bool { return c.FlightAuthority }

func (c *Controller) OnCustomDataChanged(fn func(host.Block)) host.CancelFunc {
	return c.customData.add(fn)
}

func (c *Controller) OnOwnershipChanged(fn func(host.Block)) host.CancelFunc {
	return c.ownership.add(fn)
}

func (c *Controller) OnMarkedForClose(fn func(host.Entity)) host.CancelFunc {
	return c.closing.add(fn)
}

// SetCustomData changes the free text and notifies subscribers.
func (c *Controller) SetCustomData(text string) {
	c.Data = text
	c.customData.fire(c)
}

// SetOwner changes the owner and notifies subscribers.
func (c *Controller) SetOwner(id host.IdentityID) {
	c.Owner = id
	c.ownership.fire(c)
}

// Close notifies marked-for-close subscribers with the controller itself.
func (c *Controller) Close() {
	c.closing.fire(c)
}

// CloseAs notifies marked-for-close subscribers with an arbitrary entity, as
// the engine's untyped event may.
func (c *Controller) CloseAs(e host.Entity) {
	c.closing.fire(e)
}

// Subscribers returns the number of live handlers.
func (c *Controller) Subscribers() int {
	return c.customData.len() + c.ownership.len() + c.closing.len()
}

// RemoteControl is a simulated remote control block.
type RemoteControl struct {
	Controller
	Autopilot bool
}

// NewRemoteControl returns a remote control owned by owner.
func NewRemoteControl(w *World, owner host.IdentityID, autopilot bool) *RemoteControl {
	rc := &RemoteControl{Autopilot: autopilot}
	rc.Controller = *NewController(w, owner, "")
	return rc
}

func (r *RemoteControl) AutopilotActive() bool { return r.Autopilot }

// Turret is a simulated turret.
type Turret struct {
	ID           host.EntityID
	Parent       *Grid
	UnderControl bool
}

// NewTurret returns a turret.
func NewTurret(w *World) *Turret {
	return &Turret{ID: w.NextID()}
}

func (t *Turret) EntityID() host.EntityID { return t.ID }
func (t *Turret) Grid() host.Grid         { return gridOf(t.Parent) }
func (t *Turret) IsUnderControl() bool    { return t.UnderControl }
