package fleet

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/internal/simhost"
	"github.com/realthrust/extension/internal/thruster"
	"github.com/realthrust/extension/pkg/core"
	"github.com/realthrust/extension/pkg/host"
	"github.com/realthrust/extension/pkg/vmath"
)

const (
	npcOwner    host.IdentityID = 10
	playerOwner host.IdentityID = 20
)

// countingGrid counts scheduler visits.
type countingGrid struct {
	*simhost.Grid
	visits int
}

func (g *countingGrid) MarkedForClose() bool {
	g.visits++
	return g.Grid.MarkedForClose()
}

type recorder struct {
	transitions []core.Transition
}

func (r *recorder) RecordTransition(t core.Transition) {
	r.transitions = append(r.transitions, t)
}

type fixture struct {
	world     *simhost.World
	registry  *thruster.Registry
	scheduler *Scheduler
	recorder  *recorder
}

func newFixture(t *testing.T, window int) *fixture {
	t.Helper()
	w := simhost.NewWorld()
	w.AddFaction(&simhost.Faction{ID: 1, FactionTag: "SPRT", EveryoneNPC: true}, npcOwner)
	w.AddFaction(&simhost.Faction{ID: 2, FactionTag: "PLYR"}, playerOwner)

	reg := thruster.NewRegistry(w, zerolog.Nop())
	rec := &recorder{}
	s, err := New(Dependencies{
		Config: config.SchedulerConfig{
			Window:                window,
			RosterRefreshInterval: 1000,
		},
		Players:   w,
		Factions:  w,
		Thrusters: reg,
		Recorder:  rec,
	})
	require.NoError(t, err)

	return &fixture{world: w, registry: reg, scheduler: s, recorder: rec}
}

func (f *fixture) newGrid(owner host.IdentityID) *simhost.Grid {
	g := simhost.NewGrid(f.world, "grid", owner)
	g.Place(simhost.NewThruster(f.world, 100, vmath.Vector3{X: 1}, vmath.Vector3{Z: -1}))
	return g
}

func TestRoundRobinCoverage(t *testing.T) {
	const window = 4
	f := newFixture(t, window)

	grids := make([]*countingGrid, 10)
	for i := range grids {
		grids[i] = &countingGrid{Grid: f.newGrid(playerOwner)}
		f.scheduler.EntityAdded(grids[i])
	}
	require.Equal(t, 10, f.scheduler.Len())

	for round := 1; round <= 3; round++ {
		for i := 0; i < window; i++ {
			f.scheduler.BeforeSimulation()
		}
		for i, g := range grids {
			assert.Equal(t, round, g.visits, "grid %d after round %d", i, round)
		}
	}
}

func TestSpreadsUpdates(t *testing.T) {
	f := newFixture(t, 4)
	for i := 0; i < 8; i++ {
		f.scheduler.EntityAdded(f.newGrid(playerOwner))
	}

	f.scheduler.BeforeSimulation()
	assert.Equal(t, 2, f.scheduler.Stats().UpdatesThisTick)
}

func TestEntityAdded_Filters(t *testing.T) {
	f := newFixture(t, 1)

	preview := f.newGrid(playerOwner)
	preview.Preview = true
	f.scheduler.EntityAdded(preview)
	f.scheduler.EntityAdded(&simhost.Character{ID: 5})

	assert.Equal(t, 0, f.scheduler.Len())
}

func TestEntityAdded_DuplicateReinitializesInPlace(t *testing.T) {
	f := newFixture(t, 1)
	g := f.newGrid(playerOwner)

	f.scheduler.EntityAdded(g)
	first, ok := f.scheduler.Logic(g.ID)
	require.True(t, ok)

	g.Place(simhost.NewThruster(f.world, 100, vmath.Vector3{}, vmath.Vector3{Z: -1}))
	f.scheduler.EntityAdded(g)

	second, ok := f.scheduler.Logic(g.ID)
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, 1, f.scheduler.Len())
	assert.Equal(t, 2, second.ThrusterCount())
	assert.Equal(t, 2, g.Subscribers(), "no duplicate subscriptions")
	assert.Equal(t, 2, f.registry.Len())
}

func TestClosedGridsAreCollected(t *testing.T) {
	f := newFixture(t, 1)
	grids := make([]*simhost.Grid, 5)
	for i := range grids {
		grids[i] = f.newGrid(playerOwner)
		f.scheduler.EntityAdded(grids[i])
	}
	require.Equal(t, 5, f.registry.Len())

	grids[0].Closed = true
	grids[2].Closed = true
	grids[4].Closed = true
	f.scheduler.BeforeSimulation()

	assert.Equal(t, 2, f.scheduler.Len())
	stats := f.scheduler.Stats()
	assert.Equal(t, 3, stats.RemovedThisTick)
	assert.Equal(t, 3, stats.PooledGrids)
	assert.Equal(t, 2, stats.ActiveGrids)
	assert.Equal(t, 2, f.registry.Len())
	assert.Equal(t, 0, grids[0].Subscribers())

	for _, i := range []int{0, 2, 4} {
		_, ok := f.scheduler.Logic(grids[i].ID)
		assert.False(t, ok, "grid %d still registered", i)
	}
	for _, i := range []int{1, 3} {
		l, ok := f.scheduler.Logic(grids[i].ID)
		require.True(t, ok, "grid %d lost", i)
		assert.Equal(t, grids[i].ID, l.GridID())
	}

	// pooled instances are reused
	f.scheduler.EntityAdded(f.newGrid(playerOwner))
	assert.Equal(t, 2, f.scheduler.Stats().PooledGrids)
	assert.Equal(t, 3, f.scheduler.Len())
}

func TestPlayerConnectedRefreshesRoster(t *testing.T) {
	f := newFixture(t, 1)
	g := f.newGrid(npcOwner)
	seat := simhost.NewController(f.world, npcOwner, "")
	seat.FlightAuthority = true
	g.Place(seat)
	f.scheduler.EntityAdded(g)
	f.scheduler.BeforeSimulation()

	l, _ := f.scheduler.Logic(g.ID)
	require.Equal(t, 0.0, l.Realism())

	p := &simhost.Player{
		Identity:   playerOwner,
		Body:       &simhost.Character{ID: f.world.NextID(), Seat: seat},
		Controlled: seat,
	}
	f.world.Connect(p)
	f.scheduler.BeforeSimulation()
	assert.Equal(t, 0.0, l.Realism(), "roster not refreshed yet")

	f.scheduler.PlayerConnected(p.Identity)
	f.scheduler.BeforeSimulation()
	assert.Equal(t, 1.0, l.Realism())

	f.world.Disconnect(p)
	f.scheduler.PlayerDisconnected(p.Identity)
	f.scheduler.BeforeSimulation()
	assert.Equal(t, 0.0, l.Realism())

	require.Len(t, f.recorder.transitions, 3)
	assert.Equal(t, core.ReasonPlayer, f.recorder.transitions[1].Reason)
	assert.Equal(t, uint64(3), f.recorder.transitions[1].Tick)
	assert.Equal(t, uint64(3), f.scheduler.Stats().TransitionsTotal)
}

func TestFactionEdited(t *testing.T) {
	f := newFixture(t, 1)
	f.scheduler.EntityAdded(f.newGrid(npcOwner))
	f.scheduler.BeforeSimulation()
	require.Equal(t, 1, f.world.FactionQueries)

	assert.Equal(t, 0, f.scheduler.FactionEdited(2), "non-NPC faction")
	f.scheduler.BeforeSimulation()
	assert.Equal(t, 1, f.world.FactionQueries)

	assert.Equal(t, 0, f.scheduler.FactionEdited(99), "unknown faction")

	assert.Equal(t, 1, f.scheduler.FactionEdited(1))
	f.scheduler.BeforeSimulation()
	assert.Equal(t, 2, f.world.FactionQueries)
}

func TestStats(t *testing.T) {
	f := newFixture(t, 1)
	npc := f.newGrid(npcOwner)
	npc.Place(simhost.NewController(f.world, npcOwner, ""))
	f.scheduler.EntityAdded(npc)
	f.scheduler.EntityAdded(f.newGrid(playerOwner))
	f.scheduler.BeforeSimulation()

	stats := f.scheduler.Stats()
	assert.Equal(t, uint64(1), stats.Tick)
	assert.Equal(t, 2, stats.ActiveGrids)
	assert.Equal(t, 2, stats.Thrusters)
	assert.Equal(t, 1, stats.ActiveThrusters)
	assert.Equal(t, 1, stats.Controllers)
	assert.Equal(t, 1, stats.RealisticGrids)
	assert.Equal(t, 2, stats.UpdatesThisTick)
}

func TestClose(t *testing.T) {
	f := newFixture(t, 3)
	for i := 0; i < 4; i++ {
		f.scheduler.EntityAdded(f.newGrid(playerOwner))
	}
	f.scheduler.Close()

	assert.Equal(t, 0, f.scheduler.Len())
	assert.Equal(t, 4, f.scheduler.Stats().PooledGrids)
	assert.Equal(t, 0, f.registry.Len())

	// ticking an empty fleet is a no-op
	f.scheduler.BeforeSimulation()
	assert.Equal(t, 0, f.scheduler.Stats().UpdatesThisTick)
}

func TestNew_ClampsWindow(t *testing.T) {
	s, err := New(Dependencies{Players: simhost.NewWorld()})
	require.NoError(t, err)
	assert.Equal(t, 1, s.window)
}
