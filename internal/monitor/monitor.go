// Package monitor records fleet snapshots and realism transitions to the
// configured sinks and keeps a status file for operators.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/realthrust/extension/internal/storage"
	"github.com/realthrust/extension/pkg/core"
)

// MetricsWriter is the influx side of the monitor.
type MetricsWriter interface {
	WriteFleetStats(stats core.FleetStats) error
	WriteTransition(t core.Transition) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger *slog.Logger
	// Backend and Metrics are optional.
	Backend storage.Backend
	Metrics MetricsWriter
	// Interval is the number of ticks between snapshots; 0 disables them.
	Interval int
	// StatusFile is rewritten with every snapshot when set.
	StatusFile string
	// Breaker guards the storage and influx sinks.
	Breaker BreakerConfig
}

// BreakerConfig trips a sink after Failures consecutive write errors and
// skips it for Timeout. Zero Failures disables the breaker.
type BreakerConfig struct {
	Failures uint32
	Timeout  time.Duration
}

// Status is what the status file holds.
type Status struct {
	Fleet       core.FleetStats   `json:"fleet"`
	Transitions uint64            `json:"transitionsRecorded"`
	Failures    uint64            `json:"writeFailures"`
	Skipped     uint64            `json:"writesSkipped"`
	Breakers    map[string]string `json:"breakers"`
	Last        *core.Transition  `json:"lastTransition,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	log     *slog.Logger
	ticks   int
	storage *sink
	metrics *sink

	mu          sync.RWMutex
	last        core.FleetStats
	hasLast     bool
	lastTrans   *core.Transition
	transitions uint64
	failures    uint64
	skipped     uint64
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		deps:    deps,
		log:     log,
		storage: newSink("storage", deps.Breaker, log),
		metrics: newSink("influx", deps.Breaker, log),
	}
}

// Due advances the tick counter and reports whether a snapshot should be taken
// this tick. It is called from the simulation thread only.
func (s *Service) Due() bool {
	if s.deps.Interval <= 0 {
		return false
	}
	s.ticks++
	if s.ticks < s.deps.Interval {
		return false
	}
	s.ticks = 0
	return true
}

// RecordFleetStats writes a snapshot to every sink. Sink failures are logged
// and counted; the first one is returned.
func (s *Service) RecordFleetStats(stats core.FleetStats) error {
	var first error
	note := func(sink string, err error) {
		s.fail("Recording fleet stats failed", sink, err, &first)
	}

	if s.deps.Backend != nil {
		note("storage", s.storage.write(func() error {
			return s.deps.Backend.RecordFleetStats(&stats)
		}))
	}
	if s.deps.Metrics != nil {
		note("influx", s.metrics.write(func() error {
			return s.deps.Metrics.WriteFleetStats(stats)
		}))
	}

	s.mu.Lock()
	s.last = stats
	s.hasLast = true
	s.mu.Unlock()

	if s.deps.StatusFile != "" {
		note("status file", s.writeStatus())
	}

	s.log.Debug("Fleet snapshot",
		"tick", stats.Tick,
		"grids", stats.ActiveGrids,
		"activeThrusters", stats.ActiveThrusters,
		"realistic", stats.RealisticGrids)
	return first
}

// RecordTransition writes a realism change to every sink. Sink failures are
// logged and counted; the first one is returned.
func (s *Service) RecordTransition(t core.Transition) error {
	var first error
	if s.deps.Backend != nil {
		s.fail("Recording transition failed", "storage", s.storage.write(func() error {
			return s.deps.Backend.RecordTransition(&t)
		}), &first)
	}
	if s.deps.Metrics != nil {
		s.fail("Recording transition failed", "influx", s.metrics.write(func() error {
			return s.deps.Metrics.WriteTransition(t)
		}), &first)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions++
	s.lastTrans = &t
	return first
}

// fail logs and counts a failed sink write and keeps the first error in first.
// Writes the breaker refused are counted as skipped instead.
func (s *Service) fail(msg, sink string, err error, first *error) {
	if err == nil || s.skip(err) {
		return
	}
	s.log.Error(msg, "sink", sink, "error", err)
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
	if *first == nil {
		*first = err
	}
}

// skip counts a write the breaker refused.
func (s *Service) skip(err error) bool {
	if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
	return true
}

// Last returns the most recent snapshot.
func (s *Service) Last() (core.FleetStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasLast
}

// Status returns the current status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	breakers := map[string]string{
		"storage": s.storage.state().String(),
		"influx":  s.metrics.state().String(),
	}
	return Status{
		Fleet:       s.last,
		Transitions: s.transitions,
		Failures:    s.failures,
		Skipped:     s.skipped,
		Breakers:    breakers,
		Last:        s.lastTrans,
	}
}

func (s *Service) writeStatus() error {
	data, err := json.MarshalIndent(s.Status(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	tmp := s.deps.StatusFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusFile)
}
