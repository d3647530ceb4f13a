// Package roster caches the connected player list between refreshes.
package roster

import "github.com/realthrust/extension/pkg/host"

// View is a read-only window onto the cached player list. It stays valid until
// the next refresh.
type View struct {
	players []host.Player
}

// Len returns the number of cached players.
func (v View) Len() int {
	return len(v.players)
}

// Range calls fn for each player until fn returns false.
func (v View) Range(fn func(host.Player) bool) {
	for _, p := range v.players {
		if !fn(p) {
			return
		}
	}
}

// ViewOf builds a View over players, mainly for tests.
func ViewOf(players ...host.Player) View {
	return View{players: players}
}

// Roster refreshes from a host.PlayerSource every interval ticks, or on the
// tick after RequestRefresh.
type Roster struct {
	source   host.PlayerSource
	interval int
	counter  int

	players   []host.Player
	refreshes uint64
}

// New returns a roster that refreshes on its first Tick.
func New(source host.PlayerSource, interval int) *Roster {
	if interval < 1 {
		interval = 1
	}
	return &Roster{
		source:   source,
		interval: interval,
		counter:  interval,
	}
}

// Tick advances the interval counter and refreshes when it is due. It returns
// true if a refresh happened.
func (r *Roster) Tick() bool {
	r.counter++
	if r.counter < r.interval {
		return false
	}
	r.Refresh()
	return true
}

// RequestRefresh makes the next Tick refresh regardless of the interval.
func (r *Roster) RequestRefresh() {
	r.counter = r.interval
}

// Refresh reloads the list now and restarts the interval.
func (r *Roster) Refresh() {
	r.counter = 0
	clear(r.players)
	r.players = r.source.Players(r.players[:0])
	r.refreshes++
}

// View returns the cached list.
func (r *Roster) View() View {
	return View{players: r.players}
}

// Len returns the number of cached players.
func (r *Roster) Len() int {
	return len(r.players)
}

// Refreshes returns how many times the list has been reloaded.
func (r *Roster) Refreshes() uint64 {
	return r.refreshes
}
