// Package gridlogic decides, per grid, whether thrusters behave realistically.
//
// The decision runs in order and the first rule that matches wins:
//
//  1. a tag override in a controller owned by the grid's primary owner
//  2. optionally, an active drone autopilot (arcade)
//  3. a player flying the grid or operating one of its turrets from a seat (realistic)
//  4. NPC ownership (arcade)
//  5. otherwise realistic
//
// A Logic is pooled by the fleet scheduler, so Init and Reset must leave no
// state or subscription behind.
package gridlogic

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/realthrust/extension/internal/parser"
	"github.com/realthrust/extension/internal/roster"
	"github.com/realthrust/extension/internal/set"
	"github.com/realthrust/extension/internal/thruster"
	"github.com/realthrust/extension/pkg/core"
	"github.com/realthrust/extension/pkg/host"
)

// ErrNilGrid is returned by Init when the host hands over no grid.
var ErrNilGrid = errors.New("grid logic: nil grid")

// ThrusterSource creates and destroys thruster units. A unit belongs to the
// last owner that acquired it; Release by any other owner is ignored.
type ThrusterSource interface {
	Acquire(block host.Thrust, owner any) *thruster.Unit
	Release(block host.Thrust, owner any)
}

// Dependencies holds what a Logic needs from outside.
type Dependencies struct {
	Factions  host.FactionRegistry
	Thrusters ThrusterSource
	Logger    *slog.Logger
	// DroneAIArcade enables the drone autopilot rule.
	DroneAIArcade bool
	// Tick returns the current simulation tick for transition records.
	Tick func() uint64
	// OnTransition is called whenever the realism level changes.
	OnTransition func(core.Transition)
}

type controller struct {
	block    host.ShipController
	override parser.Override
	cancels  [3]host.CancelFunc
}

// Logic is the per-grid state.
type Logic struct {
	deps Dependencies
	log  *slog.Logger

	grid    host.Grid
	gridID  host.EntityID
	realism float64
	reason  core.Reason

	thrusters   *set.Set[host.EntityID, *thruster.Unit]
	controllers *set.Set[host.EntityID, *controller]

	override      parser.Override
	overrideOwner host.IdentityID

	lastCheckedOwner host.IdentityID
	npcOwned         bool

	cancelAdded   host.CancelFunc
	cancelRemoved host.CancelFunc
}

// New creates an idle Logic.
func New(deps Dependencies) *Logic {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Logic{
		deps:             deps,
		log:              log,
		realism:          1,
		thrusters:        set.New[host.EntityID, *thruster.Unit](),
		controllers:      set.New[host.EntityID, *controller](),
		overrideOwner:    host.NoIdentity,
		lastCheckedOwner: host.NoIdentity,
	}
}

// Init binds the logic to grid, registers its existing blocks, subscribes to
// block changes and runs one update with players.
func (l *Logic) Init(grid host.Grid, players roster.View) (err error) {
	defer l.guard("init", &err)

	if grid == nil {
		l.log.Error("Grid logic initialized without a grid")
		return ErrNilGrid
	}

	l.Reset()
	l.grid = grid
	l.gridID = grid.EntityID()

	for _, b := range grid.Blocks() {
		l.blockAdded(b)
	}
	l.cancelAdded = grid.OnBlockAdded(l.blockAdded)
	l.cancelRemoved = grid.OnBlockRemoved(l.blockRemoved)

	l.recomputeOverride()
	l.Update(players)
	return nil
}

// Reset drops every subscription and releases the thruster units. It is safe
// to call on an idle Logic.
func (l *Logic) Reset() {
	defer l.guard("reset", nil)

	if l.cancelAdded != nil {
		l.cancelAdded()
		l.cancelAdded = nil
	}
	if l.cancelRemoved != nil {
		l.cancelRemoved()
		l.cancelRemoved = nil
	}

	l.controllers.Range(func(_ host.EntityID, c *controller) bool {
		c.unsubscribe()
		return true
	})
	l.controllers.Clear()

	if l.deps.Thrusters != nil {
		l.thrusters.Range(func(_ host.EntityID, u *thruster.Unit) bool {
			l.deps.Thrusters.Release(u.Block(), l)
			return true
		})
	}
	l.thrusters.Clear()

	l.grid = nil
	l.gridID = 0
	l.realism = 1
	l.reason = ""
	l.override = parser.Override{}
	l.overrideOwner = host.NoIdentity
	l.lastCheckedOwner = host.NoIdentity
	l.npcOwned = false
}

// Update re-evaluates the realism level and pushes it to the thruster units
// when it changed. It returns true on a change.
func (l *Logic) Update(players roster.View) (changed bool) {
	defer l.guard("update", nil)

	grid := l.grid
	if grid == nil || grid.IsPreview() {
		return false
	}
	physics := grid.Physics()
	if physics == nil || !physics.Enabled() || physics.IsStatic() {
		return false
	}
	if l.thrusters.Len() == 0 {
		return false
	}

	if owner := primaryOwner(grid); owner != l.overrideOwner {
		l.recomputeOverride()
	}

	level, reason := l.decide(players)
	l.reason = reason
	if level == l.realism {
		return false
	}

	from := l.realism
	l.realism = level
	l.push()
	l.emit(from, level, reason)
	return true
}

// FactionEdited forgets the cached NPC-ownership answer.
func (l *Logic) FactionEdited() {
	l.lastCheckedOwner = host.NoIdentity
}

// Grid returns the bound grid, or nil when idle.
func (l *Logic) Grid() host.Grid {
	return l.grid
}

// GridID returns the bound grid's id, or 0 when idle.
func (l *Logic) GridID() host.EntityID {
	return l.gridID
}

// Realism returns the current level in [0,1].
func (l *Logic) Realism() float64 {
	return l.realism
}

// Reason returns the rule behind the last decision.
func (l *Logic) Reason() core.Reason {
	return l.reason
}

// Override returns the active tag override, if any.
func (l *Logic) Override() parser.Override {
	return l.override
}

// ThrusterCount returns the number of registered thrusters.
func (l *Logic) ThrusterCount() int {
	return l.thrusters.Len()
}

// ControllerCount returns the number of registered controllers.
func (l *Logic) ControllerCount() int {
	return l.controllers.Len()
}

func (l *Logic) decide(players roster.View) (float64, core.Reason) {
	if l.override.Active() {
		return l.override.Amount, core.ReasonOverride
	}
	if l.deps.DroneAIArcade && l.hasDroneAI() {
		return 0, core.ReasonDroneAI
	}
	if l.isPlayerControlled(players) {
		return 1, core.ReasonPlayer
	}
	if l.isNPCOwned() {
		return 0, core.ReasonNPCOwned
	}
	return 1, core.ReasonPlayerOwned
}

func (l *Logic) push() {
	l.thrusters.Range(func(_ host.EntityID, u *thruster.Unit) bool {
		u.SetRealismAmount(l.realism)
		return true
	})
}

func (l *Logic) emit(from, to float64, reason core.Reason) {
	l.log.Debug("Realism changed",
		"grid", int64(l.gridID),
		"from", from,
		"to", to,
		"reason", string(reason))

	if l.deps.OnTransition == nil {
		return
	}
	var tick uint64
	if l.deps.Tick != nil {
		tick = l.deps.Tick()
	}
	l.deps.OnTransition(core.Transition{
		Time:     time.Now(),
		Tick:     tick,
		GridID:   int64(l.gridID),
		GridName: l.grid.DisplayName(),
		OwnerID:  int64(primaryOwner(l.grid)),
		From:     from,
		To:       to,
		Reason:   reason,
	})
}

// guard turns a panic into a logged error. errp, when given, receives an error
// describing the panic.
func (l *Logic) guard(op string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	l.log.Error("Grid logic failed",
		"op", op,
		"grid", int64(l.gridID),
		"panic", r,
		"stack", string(debug.Stack()))
	if errp != nil {
		*errp = &PanicError{Op: op, Value: r}
	}
}

func primaryOwner(grid host.Grid) host.IdentityID {
	owners := grid.BigOwners()
	if len(owners) == 0 {
		return host.NoIdentity
	}
	return owners[0]
}
