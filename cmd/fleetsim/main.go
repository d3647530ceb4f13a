// Command fleetsim runs the realistic thrust session against a synthetic fleet
// and prints what it did.
package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/realthrust/extension/internal/session"
	"github.com/realthrust/extension/internal/simhost"
	"github.com/realthrust/extension/pkg/host"
	"github.com/realthrust/extension/pkg/vmath"
)

const (
	npcFaction    int64 = 1
	playerFaction int64 = 2

	firstNPC    host.IdentityID = 100
	firstPlayer host.IdentityID = 500
)

type options struct {
	configDir string
	grids     int
	ticks     int
	players   int
	npcShare  float64
	tagShare  float64
	churn     float64
	seed      uint64
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "fleetsim:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("fleetsim", pflag.ContinueOnError)
	fs.SetOutput(stdout)

	var opts options
	fs.StringVar(&opts.configDir, "config", ".", "directory holding realthrust.cfg.json")
	fs.IntVar(&opts.grids, "grids", 200, "grids alive at any time")
	fs.IntVar(&opts.ticks, "ticks", 1200, "simulation ticks to run")
	fs.IntVar(&opts.players, "players", 8, "connected players")
	fs.Float64Var(&opts.npcShare, "npc-share", 0.5, "share of grids owned by the NPC faction")
	fs.Float64Var(&opts.tagShare, "tag-share", 0.05, "share of cockpits carrying a realism tag")
	fs.Float64Var(&opts.churn, "churn", 0.001, "per grid and tick chance of being destroyed and replaced")
	fs.Uint64Var(&opts.seed, "seed", 1, "random seed")
	fs.String("log-level", "", "overrides logLevel from the config file")
	fs.Int("window", 0, "overrides scheduler.window from the config file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := viper.BindPFlag("logLevel", fs.Lookup("log-level")); err != nil {
		return err
	}
	if err := viper.BindPFlag("scheduler.window", fs.Lookup("window")); err != nil {
		return err
	}
	if opts.grids < 0 || opts.ticks < 0 || opts.players < 0 {
		return fmt.Errorf("grids, ticks and players must not be negative")
	}

	sim := newSimulation(opts)
	s := session.New(session.Host{
		Players:  sim.world,
		Factions: sim.world,
		Forces:   sim.world,
	}, session.Options{ConfigDir: opts.configDir})
	if err := s.Load(); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	sim.populate(s)
	forces := 0
	for i := 0; i < opts.ticks; i++ {
		sim.step(s)
		s.BeforeSimulation()
		s.AfterSimulation()
		forces += len(sim.world.Forces)
		sim.world.ResetForces()
	}

	stats := s.Fleet().Stats()
	applied := s.Thrusters().Applied()
	if err := s.Unload(); err != nil {
		return fmt.Errorf("unloading session: %w", err)
	}
	status := s.Monitor().Status()

	fmt.Fprintf(stdout, "session      %s\n", s.ID())
	fmt.Fprintf(stdout, "ticks        %s\n", humanize.Comma(int64(stats.Tick)))
	fmt.Fprintf(stdout, "grids        %s (%s spawned, %s destroyed)\n",
		humanize.Comma(int64(stats.ActiveGrids)),
		humanize.Comma(int64(sim.spawned)),
		humanize.Comma(int64(sim.destroyed)))
	fmt.Fprintf(stdout, "realistic    %s\n", humanize.Comma(int64(stats.RealisticGrids)))
	fmt.Fprintf(stdout, "thrusters    %s (%s active)\n",
		humanize.Comma(int64(stats.Thrusters)),
		humanize.Comma(int64(stats.ActiveThrusters)))
	fmt.Fprintf(stdout, "forces       %s applied, %s calls\n",
		humanize.Comma(int64(applied)),
		humanize.Comma(int64(forces)))
	fmt.Fprintf(stdout, "transitions  %s (%s write failures, %s skipped)\n",
		humanize.Comma(int64(status.Transitions)),
		humanize.Comma(int64(status.Failures)),
		humanize.Comma(int64(status.Skipped)))
	return nil
}

// simulation owns the synthetic world and mutates it between ticks.
type simulation struct {
	opts  options
	rng   *rand.Rand
	world *simhost.World

	grids     []*simhost.Grid
	cockpits  map[host.EntityID]*simhost.Controller
	players   []*simhost.Player
	spawned   int
	destroyed int
}

func newSimulation(opts options) *simulation {
	w := simhost.NewWorld()
	npcs := make([]host.IdentityID, 0, 4)
	for i := 0; i < 4; i++ {
		npcs = append(npcs, firstNPC+host.IdentityID(i))
	}
	w.AddFaction(&simhost.Faction{ID: npcFaction, FactionTag: "SPRT", EveryoneNPC: true}, npcs...)

	members := make([]host.IdentityID, 0, opts.players)
	for i := 0; i < opts.players; i++ {
		members = append(members, firstPlayer+host.IdentityID(i))
	}
	w.AddFaction(&simhost.Faction{ID: playerFaction, FactionTag: "PLYR"}, members...)

	return &simulation{
		opts:     opts,
		rng:      rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15)),
		world:    w,
		cockpits: make(map[host.EntityID]*simhost.Controller),
	}
}

func (sim *simulation) populate(s *session.Session) {
	for i := 0; i < sim.opts.grids; i++ {
		sim.spawn(s)
	}
	for i := 0; i < sim.opts.players; i++ {
		p := &simhost.Player{
			Identity: firstPlayer + host.IdentityID(i),
			Name:     fmt.Sprintf("pilot-%d", i),
			Body:     &simhost.Character{ID: sim.world.NextID()},
		}
		sim.players = append(sim.players, p)
		sim.world.Connect(p)
		s.PlayerConnected(p.Identity)
		sim.seat(p)
	}
}

func (sim *simulation) spawn(s *session.Session) {
	owner := firstPlayer + host.IdentityID(sim.rng.IntN(max(sim.opts.players, 1)))
	if sim.rng.Float64() < sim.opts.npcShare {
		owner = firstNPC + host.IdentityID(sim.rng.IntN(4))
	}

	g := simhost.NewGrid(sim.world, fmt.Sprintf("grid-%d", sim.spawned), owner)
	g.CoM = vmath.Vector3{Y: 1}
	for n := 2 + sim.rng.IntN(5); n > 0; n-- {
		pos := vmath.Vector3{X: sim.rng.Float64()*10 - 5, Y: sim.rng.Float64() * 3, Z: sim.rng.Float64()*10 - 5}
		thrust := simhost.NewThruster(sim.world, 1000+sim.rng.Float64()*9000, pos, vmath.Vector3{Z: -1})
		thrust.Throttle = sim.rng.Float64()
		g.Place(thrust)
	}

	var data string
	if sim.rng.Float64() < sim.opts.tagShare {
		data = fmt.Sprintf("realistic-thrust-%d%%", sim.rng.IntN(101))
	}
	cockpit := simhost.NewController(sim.world, owner, data)
	cockpit.FlightAuthority = true
	g.Place(cockpit)

	sim.grids = append(sim.grids, g)
	sim.cockpits[g.ID] = cockpit
	sim.spawned++
	s.EntityAdded(g)
}

// seat moves p into a random grid's cockpit, or leaves it on foot.
func (sim *simulation) seat(p *simhost.Player) {
	p.Controlled = nil
	p.Body.Seat = nil
	if len(sim.grids) == 0 || sim.rng.IntN(3) == 0 {
		return
	}
	g := sim.grids[sim.rng.IntN(len(sim.grids))]
	if g.Closed {
		return
	}
	cockpit := sim.cockpits[g.ID]
	p.Controlled = cockpit
	p.Body.Seat = cockpit
}

func (sim *simulation) step(s *session.Session) {
	alive := sim.grids[:0]
	var lost int
	for _, g := range sim.grids {
		if g.Closed {
			delete(sim.cockpits, g.ID)
			continue
		}
		if sim.rng.Float64() < sim.opts.churn {
			g.Closed = true
			sim.destroyed++
			lost++
		}
		alive = append(alive, g)
	}
	sim.grids = alive

	for ; lost > 0; lost-- {
		sim.spawn(s)
	}
	if len(sim.players) > 0 && sim.rng.IntN(100) == 0 {
		sim.seat(sim.players[sim.rng.IntN(len(sim.players))])
	}
}
