// Package fleet owns the grid logic population and spreads its updates over a
// round-robin window of ticks.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/internal/gridlogic"
	"github.com/realthrust/extension/internal/pool"
	"github.com/realthrust/extension/internal/queue"
	"github.com/realthrust/extension/internal/roster"
	"github.com/realthrust/extension/pkg/core"
	"github.com/realthrust/extension/pkg/host"
)

// Recorder receives realism transitions.
type Recorder interface {
	RecordTransition(t core.Transition)
}

// Thrusters is the thruster unit registry as the scheduler sees it.
type Thrusters interface {
	gridlogic.ThrusterSource
	Len() int
	Active() int
}

// Dependencies holds what the scheduler needs from the host and the session.
type Dependencies struct {
	Config    config.SchedulerConfig
	Players   host.PlayerSource
	Factions  host.FactionRegistry
	Thrusters Thrusters
	Logger    *slog.Logger
	// Recorder is optional.
	Recorder Recorder
}

// Scheduler is the fleet scheduler. All methods must be called from the
// simulation thread.
type Scheduler struct {
	deps   Dependencies
	log    *slog.Logger
	window int

	tick   uint64
	cursor int

	logics []*gridlogic.Logic
	byGrid map[host.EntityID]*gridlogic.Logic
	pool   *pool.Pool[*gridlogic.Logic]
	roster *roster.Roster

	removals *queue.Queue[int]
	scratch  []int

	updatesThisTick  int
	removedThisTick  int
	transitionsTotal uint64

	gridsActive atomic.Int64
	gridsPooled atomic.Int64
	metrics     *metrics
}

// New creates a scheduler.
func New(deps Dependencies) (*Scheduler, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	window := deps.Config.Window
	if window < 1 {
		window = 1
	}

	s := &Scheduler{
		deps:     deps,
		log:      log,
		window:   window,
		byGrid:   make(map[host.EntityID]*gridlogic.Logic),
		roster:   roster.New(deps.Players, deps.Config.RosterRefreshInterval),
		removals: queue.New[int](),
	}
	s.pool = pool.New(s.newLogic, (*gridlogic.Logic).Reset)

	m, err := newMetrics(s)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

func (s *Scheduler) newLogic() *gridlogic.Logic {
	return gridlogic.New(gridlogic.Dependencies{
		Factions:      s.deps.Factions,
		Thrusters:     s.deps.Thrusters,
		Logger:        s.log,
		DroneAIArcade: s.deps.Config.DroneAIArcade,
		Tick:          s.Tick,
		OnTransition:  s.transition,
	})
}

// EntityAdded registers a grid. Non-grid entities and preview grids are
// ignored. A grid id that is already registered is re-initialized in place.
func (s *Scheduler) EntityAdded(e host.Entity) {
	defer s.guard("entity added")

	grid, ok := e.(host.Grid)
	if !ok || grid.IsPreview() {
		return
	}
	id := grid.EntityID()

	if l, ok := s.byGrid[id]; ok {
		l.Reset()
		if err := l.Init(grid, s.roster.View()); err != nil {
			s.log.Error("Reinitializing grid logic failed", "grid", int64(id), "err", err)
		}
		return
	}

	l := s.pool.Acquire()
	if err := l.Init(grid, s.roster.View()); err != nil {
		s.log.Error("Initializing grid logic failed", "grid", int64(id), "err", err)
		s.pool.Release(l)
		return
	}
	s.logics = append(s.logics, l)
	s.byGrid[id] = l
	s.syncGauges()
}

// BeforeSimulation runs one scheduling tick.
func (s *Scheduler) BeforeSimulation() {
	defer s.guard("before simulation")

	s.tick++
	s.updatesThisTick = 0
	s.removedThisTick = 0

	if len(s.logics) == 0 {
		return
	}

	s.roster.Tick()
	view := s.roster.View()

	s.cursor = (s.cursor + 1) % s.window
	for i := s.cursor; i < len(s.logics); i += s.window {
		s.visit(i, view)
	}

	if !s.removals.Empty() {
		s.collect()
	}
	if s.updatesThisTick > 0 {
		s.metrics.updates.Add(context.Background(), int64(s.updatesThisTick))
	}
}

func (s *Scheduler) visit(i int, view roster.View) {
	defer s.guard("visit")

	l := s.logics[i]
	grid := l.Grid()
	if grid == nil || grid.MarkedForClose() {
		s.removals.Push(i)
		return
	}
	l.Update(view)
	s.updatesThisTick++
}

// collect tears down the queued indices, highest first so a swap-remove never
// moves an index that is still queued.
func (s *Scheduler) collect() {
	indices := s.scratch[:0]
	s.removals.Drain(func(i int) {
		indices = append(indices, i)
	})
	slices.Sort(indices)
	s.scratch = indices

	for j := len(indices) - 1; j >= 0; j-- {
		s.removeAt(indices[j])
	}
	s.removedThisTick = len(indices)
	s.metrics.removed.Add(context.Background(), int64(len(indices)))
	s.syncGauges()
}

func (s *Scheduler) removeAt(i int) {
	l := s.logics[i]
	id := l.GridID()
	if s.byGrid[id] != l {
		// Init failed after a re-add; find the entry by value.
		for k, v := range s.byGrid {
			if v == l {
				id = k
				break
			}
		}
	}
	if s.byGrid[id] == l {
		delete(s.byGrid, id)
	}

	last := len(s.logics) - 1
	s.logics[i] = s.logics[last]
	s.logics[last] = nil
	s.logics = s.logics[:last]

	s.pool.Release(l)
}

// PlayerConnected makes the next tick refresh the player roster.
func (s *Scheduler) PlayerConnected(id host.IdentityID) {
	s.log.Debug("Player connected", "identity", int64(id))
	s.roster.RequestRefresh()
}

// PlayerDisconnected makes the next tick refresh the player roster.
func (s *Scheduler) PlayerDisconnected(id host.IdentityID) {
	s.log.Debug("Player disconnected", "identity", int64(id))
	s.roster.RequestRefresh()
}

// FactionEdited invalidates every grid's ownership cache if the faction is
// entirely NPC. It returns the number of grids invalidated.
func (s *Scheduler) FactionEdited(factionID int64) int {
	if s.deps.Factions == nil {
		return 0
	}
	f := s.deps.Factions.Faction(factionID)
	if f == nil || !f.IsEveryoneNPC() {
		return 0
	}
	for _, l := range s.logics {
		l.FactionEdited()
	}
	s.log.Debug("NPC faction edited", "faction", factionID, "tag", f.Tag(), "grids", len(s.logics))
	return len(s.logics)
}

// Close resets every grid logic and returns it to the pool.
func (s *Scheduler) Close() {
	for i := len(s.logics) - 1; i >= 0; i-- {
		s.removeAt(i)
	}
	s.cursor = 0
	s.syncGauges()
}

// Tick returns the number of scheduling ticks run.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}

// Len returns the number of registered grids.
func (s *Scheduler) Len() int {
	return len(s.logics)
}

// Logic returns the grid logic registered for a grid id.
func (s *Scheduler) Logic(id host.EntityID) (*gridlogic.Logic, bool) {
	l, ok := s.byGrid[id]
	return l, ok
}

// Roster returns the player roster the scheduler refreshes.
func (s *Scheduler) Roster() *roster.Roster {
	return s.roster
}

// Stats snapshots the scheduler.
func (s *Scheduler) Stats() core.FleetStats {
	stats := core.FleetStats{
		Time:             time.Now(),
		Tick:             s.tick,
		ActiveGrids:      len(s.logics),
		PooledGrids:      s.pool.Free(),
		UpdatesThisTick:  s.updatesThisTick,
		RemovedThisTick:  s.removedThisTick,
		RosterSize:       s.roster.Len(),
		TransitionsTotal: s.transitionsTotal,
	}
	if s.deps.Thrusters != nil {
		stats.Thrusters = s.deps.Thrusters.Len()
		stats.ActiveThrusters = s.deps.Thrusters.Active()
	}
	for _, l := range s.logics {
		stats.Controllers += l.ControllerCount()
		if l.Realism() > 0 {
			stats.RealisticGrids++
		}
	}
	return stats
}

func (s *Scheduler) transition(t core.Transition) {
	s.transitionsTotal++
	s.metrics.transitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", string(t.Reason))))
	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordTransition(t)
	}
}

func (s *Scheduler) syncGauges() {
	s.gridsActive.Store(int64(len(s.logics)))
	s.gridsPooled.Store(int64(s.pool.Free()))
}

func (s *Scheduler) guard(op string) {
	if r := recover(); r != nil {
		s.log.Error("Fleet scheduler failed",
			"op", op,
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()))
	}
}
