package simhost

import (
	"github.com/realthrust/extension/pkg/host"
	"github.com/realthrust/extension/pkg/vmath"
)

// Physics is a simulated physics body.
type Physics struct {
	On     bool
	Static bool
}

func (p *Physics) Enabled() bool  { return p.On }
func (p *Physics) IsStatic() bool { return p.Static }

// Grid is a simulated vehicle.
type Grid struct {
	ID      host.EntityID
	Name    string
	Preview bool
	Body    *Physics
	Closed  bool
	Owners  []host.IdentityID
	CoM     vmath.Vector3

	blocks  []host.Block
	added   handlers[host.Block]
	removed handlers[host.Block]
}

// NewGrid returns a dynamic grid with enabled physics.
func NewGrid(w *World, name string, owners ...host.IdentityID) *Grid {
	return &Grid{
		ID:     w.NextID(),
		Name:   name,
		Body:   &Physics{On: true},
		Owners: owners,
	}
}

func (g *Grid) EntityID() host.EntityID          { return g.ID }
func (g *Grid) DisplayName() string              { return g.Name }
func (g *Grid) IsPreview() bool                  { return g.Preview }
func (g *Grid) MarkedForClose() bool             { return g.Closed }
func (g *Grid) BigOwners() []host.IdentityID     { return g.Owners }
func (g *Grid) GroupCenterOfMass() vmath.Vector3 { return g.CoM }

func (g *Grid) Physics() host.Physics {
	if g.Body == nil {
		return nil
	}
	return g.Body
}

func (g *Grid) Blocks() []host.Block {
	return append([]host.Block(nil), g.blocks...)
}

func (g *Grid) OnBlockAdded(fn func(host.Block)) host.CancelFunc {
	return g.added.add(fn)
}

func (g *Grid) OnBlockRemoved(fn func(host.Block)) host.CancelFunc {
	return g.removed.add(fn)
}

// Subscribers returns the number of live block-added and block-removed handlers.
func (g *Grid) Subscribers() int {
	return g.added.len() + g.removed.len()
}

// Place puts b on the grid without notifying anyone, as if it were part of the
// grid when it spawned.
func (g *Grid) Place(b host.Block) {
	setGrid(b, g)
	g.blocks = append(g.blocks, b)
}

// Add places b and fires block-added.
func (g *Grid) Add(b host.Block) {
	g.Place(b)
	g.added.fire(b)
}

// Remove takes b off the grid and fires block-removed.
func (g *Grid) Remove(b host.Block) {
	for i, v := range g.blocks {
		if v.EntityID() == b.EntityID() {
			g.blocks = append(g.blocks[:i], g.blocks[i+1:]...)
			break
		}
	}
	g.removed.fire(b)
}

func setGrid(b host.Block, g *Grid) {
	switch v := b.(type) {
	case *Thruster:
		v.Parent = g
	case *Controller:
		v.Parent = g
	case *RemoteControl:
		v.Parent = g
	case *Turret:
		v.Parent = g
	case *Block:
		v.Parent = g
	}
}

// Block is a block with no special role.
type Block struct {
	ID     host.EntityID
	Parent *Grid
}

func (b *Block) EntityID() host.EntityID { return b.ID }
func (b *Block) Grid() host.Grid         { return gridOf(b.Parent) }

func gridOf(g *Grid) host.Grid {
	if g == nil {
		return nil
	}
	return g
}
