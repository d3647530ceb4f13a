// Package host describes the parts of the game engine this extension consumes.
//
// Nothing here is implemented by the extension itself. The engine glue supplies
// concrete values; tests and the soak harness use internal/simhost.
package host

import "github.com/realthrust/extension/pkg/vmath"

// EntityID is the engine's stable identifier for any entity (grid, block, character).
type EntityID int64

// IdentityID identifies a player identity, which is what owns grids and blocks.
type IdentityID int64

// NoIdentity is used where an owner is expected but absent.
const NoIdentity IdentityID = -1

// CancelFunc removes a previously registered event handler. Calling it more than once is a no-op.
type CancelFunc func()

// Entity is anything with an entity id.
type Entity interface {
	EntityID() EntityID
}

// Physics is the physics body of a grid.
type Physics interface {
	Enabled() bool
	IsStatic() bool
}

// Grid is a vehicle: a physics-simulated structure made of blocks.
type Grid interface {
	Entity
	DisplayName() string
	IsPreview() bool
	// Physics returns nil when the grid has no physics body.
	Physics() Physics
	MarkedForClose() bool
	// BigOwners lists the identities owning most blocks. The first entry is the primary owner.
	BigOwners() []IdentityID
	// GroupCenterOfMass is the shared center of mass of all grids physically connected to this one.
	GroupCenterOfMass() vmath.Vector3
	// Blocks returns the functional blocks currently on the grid.
	Blocks() []Block
	OnBlockAdded(func(Block)) CancelFunc
	OnBlockRemoved(func(Block)) CancelFunc
}

// Block is a functional block placed on a grid.
type Block interface {
	Entity
	Grid() Grid
}

// Thrust is a thruster block.
type Thrust interface {
	Block
	IsWorking() bool
	// ForceMagnitude is the definition's maximum force.
	ForceMagnitude() float64
	// CurrentStrength is the current throttle in [0,1].
	CurrentStrength() float64
	WorldMatrix() vmath.Matrix
	OnIsWorkingChanged(func(Block)) CancelFunc
}

// ShipController is a cockpit, seat or remote control.
type ShipController interface {
	Block
	OwnerID() IdentityID
	CustomData() string
	EnableShipControl() bool
	// HasFlightAuthority is true only for the controller currently flying the grid.
	// Sitting in a seat while operating a turret does not grant it.
	HasFlightAuthority() bool
	OnCustomDataChanged(func(Block)) CancelFunc
	OnOwnershipChanged(func(Block)) CancelFunc
	// OnMarkedForClose fires with the closing entity, which the engine does not type.
	OnMarkedForClose(func(Entity)) CancelFunc
}

// RemoteControl is a ship controller with an autopilot.
type RemoteControl interface {
	ShipController
	AutopilotActive() bool
}

// Turret is a turret block a player can control remotely.
type Turret interface {
	Block
	// IsUnderControl is true while a player is aiming the turret manually.
	IsUnderControl() bool
}

// Character is a player's body. Parent is the seat it sits in, or nil.
type Character interface {
	Entity
	Parent() Entity
}

// Player is a connected player.
type Player interface {
	IdentityID() IdentityID
	DisplayName() string
	IsBot() bool
	// Character returns nil while the player has no body (spectating, respawn screen).
	Character() Character
	// ControlledEntity returns nil when the player controls nothing.
	ControlledEntity() Entity
}

// PlayerSource lists connected players, appending to dst.
type PlayerSource interface {
	Players(dst []Player) []Player
}

// Faction is a player faction.
type Faction interface {
	FactionID() int64
	Tag() string
	IsEveryoneNPC() bool
	PrivateInfo() string
}

// FactionRegistry resolves factions.
type FactionRegistry interface {
	// PlayerFaction returns nil when the identity is in no faction.
	PlayerFaction(id IdentityID) Faction
	// Faction returns nil for unknown ids.
	Faction(id int64) Faction
}

// ForceApplicator applies a world-space force at a world-space point of a grid's physics body.
type ForceApplicator interface {
	ApplyForce(grid Grid, force, at vmath.Vector3)
}
