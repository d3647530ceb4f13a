package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/internal/storage/memory"
	"github.com/realthrust/extension/pkg/core"
)

type fakeMetrics struct {
	stats       []core.FleetStats
	transitions []core.Transition
	err         error
}

func (f *fakeMetrics) WriteFleetStats(stats core.FleetStats) error {
	f.stats = append(f.stats, stats)
	return f.err
}

func (f *fakeMetrics) WriteTransition(t core.Transition) error {
	f.transitions = append(f.transitions, t)
	return f.err
}

type failingBackend struct {
	err error
}

func (f *failingBackend) Init() error                             { return nil }
func (f *failingBackend) Close() error                            { return nil }
func (f *failingBackend) RecordTransition(*core.Transition) error { return f.err }
func (f *failingBackend) RecordFleetStats(*core.FleetStats) error { return f.err }

func TestDue(t *testing.T) {
	s := NewService(Dependencies{Interval: 3})

	var due []bool
	for i := 0; i < 6; i++ {
		due = append(due, s.Due())
	}
	assert.Equal(t, []bool{false, false, true, false, false, true}, due)
}

func TestDue_Disabled(t *testing.T) {
	s := NewService(Dependencies{})
	for i := 0; i < 5; i++ {
		assert.False(t, s.Due())
	}
}

func TestRecordFleetStats(t *testing.T) {
	backend := memory.New(config.MemoryConfig{Capacity: 10})
	metrics := &fakeMetrics{}
	statusFile := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{
		Backend:    backend,
		Metrics:    metrics,
		StatusFile: statusFile,
	})

	require.NoError(t, s.RecordTransition(core.Transition{GridID: 3, Reason: core.ReasonPlayer}))
	require.NoError(t, s.RecordFleetStats(core.FleetStats{Tick: 120, ActiveGrids: 4}))

	latest, ok, err := backend.LatestFleetStats()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, latest.ActiveGrids)
	assert.Len(t, metrics.stats, 1)
	assert.Len(t, metrics.transitions, 1)
	assert.Equal(t, 1, backend.Len())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(120), last.Tick)

	data, err := os.ReadFile(statusFile)
	require.NoError(t, err)
	var status Status
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, 4, status.Fleet.ActiveGrids)
	assert.Equal(t, uint64(1), status.Transitions)
	require.NotNil(t, status.Last)
	assert.Equal(t, int64(3), status.Last.GridID)
}

func TestRecordFailuresAreCounted(t *testing.T) {
	metrics := &fakeMetrics{err: errors.New("influx down")}
	s := NewService(Dependencies{Metrics: metrics})

	assert.Error(t, s.RecordFleetStats(core.FleetStats{}))
	assert.Error(t, s.RecordTransition(core.Transition{}))
	assert.Equal(t, uint64(2), s.Status().Failures)

	// the snapshot is kept even when a sink fails
	_, ok := s.Last()
	assert.True(t, ok)
}

func TestRecordTransition_EverySinkFailureLogged(t *testing.T) {
	var logs bytes.Buffer
	storageErr := errors.New("disk full")
	s := NewService(Dependencies{
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
		Backend: &failingBackend{err: storageErr},
		Metrics: &fakeMetrics{err: errors.New("influx down")},
	})

	err := s.RecordTransition(core.Transition{GridID: 7})
	assert.ErrorIs(t, err, storageErr, "the first failure is returned")

	status := s.Status()
	assert.Equal(t, uint64(2), status.Failures)
	assert.Equal(t, uint64(1), status.Transitions)
	assert.Contains(t, logs.String(), "sink=storage")
	assert.Contains(t, logs.String(), "disk full")
	assert.Contains(t, logs.String(), "sink=influx")
	assert.Contains(t, logs.String(), "influx down")
}

func TestStatusFileUnwritable(t *testing.T) {
	s := NewService(Dependencies{
		StatusFile: filepath.Join(t.TempDir(), "missing", "status.json"),
	})
	assert.Error(t, s.RecordFleetStats(core.FleetStats{}))
}

func TestBreakerSkipsFailingSink(t *testing.T) {
	backend := memory.New(config.MemoryConfig{Capacity: 10})
	metrics := &fakeMetrics{err: errors.New("influx down")}
	s := NewService(Dependencies{
		Backend: backend,
		Metrics: metrics,
		Breaker: BreakerConfig{Failures: 2, Timeout: time.Hour},
	})

	assert.Error(t, s.RecordTransition(core.Transition{GridID: 1}))
	assert.Error(t, s.RecordTransition(core.Transition{GridID: 2}))
	assert.NoError(t, s.RecordTransition(core.Transition{GridID: 3}), "open breaker skips the sink")

	assert.Len(t, metrics.transitions, 2)
	assert.Equal(t, 3, backend.Len(), "storage keeps its own breaker")

	status := s.Status()
	assert.Equal(t, uint64(2), status.Failures)
	assert.Equal(t, uint64(1), status.Skipped)
	assert.Equal(t, "open", status.Breakers["influx"])
	assert.Equal(t, "closed", status.Breakers["storage"])
}

func TestNoBreakerByDefault(t *testing.T) {
	metrics := &fakeMetrics{err: errors.New("influx down")}
	s := NewService(Dependencies{Metrics: metrics})

	for i := 0; i < 10; i++ {
		assert.Error(t, s.RecordFleetStats(core.FleetStats{}))
	}
	assert.Len(t, metrics.stats, 10)
	assert.Equal(t, "closed", s.Status().Breakers["influx"])
}
