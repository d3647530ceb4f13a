package thruster

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/realthrust/extension/internal/set"
	"github.com/realthrust/extension/pkg/host"
)

// Registry owns every Unit, keyed by block, and steps the active ones.
type Registry struct {
	applicator host.ForceApplicator
	log        zerolog.Logger

	units  map[host.EntityID]*Unit
	active *set.Set[host.EntityID, *Unit]

	applied uint64
}

// NewRegistry creates a registry submitting forces to applicator. log should be
// a sampled logger (see logging.NewTickLogger); it is only used on failures.
func NewRegistry(applicator host.ForceApplicator, log zerolog.Logger) *Registry {
	return &Registry{
		applicator: applicator,
		log:        log,
		units:      make(map[host.EntityID]*Unit),
		active:     set.New[host.EntityID, *Unit](),
	}
}

// Acquire returns the unit for block, creating it on first sight, and makes
// owner its only owner. A block that moved to another grid keeps its unit; the
// previous owner loses the right to release it. owner must be comparable.
func (r *Registry) Acquire(block host.Thrust, owner any) *Unit {
	id := block.EntityID()
	if u, ok := r.units[id]; ok {
		u.owner = owner
		return u
	}
	u := newUnit(block, r.applicator, r.activity)
	u.owner = owner
	r.units[id] = u
	return u
}

// Release destroys the unit for block if owner still owns it. Unknown blocks
// and stale owners are ignored.
func (r *Registry) Release(block host.Thrust, owner any) {
	id := block.EntityID()
	u, ok := r.units[id]
	if !ok || u.owner != owner {
		return
	}
	u.close()
	delete(r.units, id)
	r.active.Remove(id)
}

// Get returns the unit for a block id.
func (r *Registry) Get(id host.EntityID) (*Unit, bool) {
	u, ok := r.units[id]
	return u, ok
}

func (r *Registry) activity(u *Unit, active bool) {
	if active {
		r.active.Add(u.block.EntityID(), u)
	} else {
		r.active.Remove(u.block.EntityID())
	}
}

// Step runs one physics tick for every active unit. A failing unit is logged
// and skipped.
func (r *Registry) Step() {
	r.active.Range(func(id host.EntityID, u *Unit) bool {
		r.stepUnit(id, u)
		return true
	})
}

func (r *Registry) stepUnit(id host.EntityID, u *Unit) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Int64("block", int64(id)).
				Str("panic", fmt.Sprint(p)).
				Str("stack", string(debug.Stack())).
				Msg("thruster update failed")
		}
	}()
	if u.UpdateBeforeSimulation() {
		r.applied++
	}
}

// Len returns the number of units.
func (r *Registry) Len() int {
	return len(r.units)
}

// Active returns the number of units doing per-tick work.
func (r *Registry) Active() int {
	return r.active.Len()
}

// Applied returns how many force pairs have been submitted in total.
func (r *Registry) Applied() uint64 {
	return r.applied
}
