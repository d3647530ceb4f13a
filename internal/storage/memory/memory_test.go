package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/pkg/core"
)

func TestInitClose(t *testing.T) {
	b := New(config.MemoryConfig{Capacity: 10})
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}

func TestRecentTransitions_NewestFirst(t *testing.T) {
	b := New(config.MemoryConfig{Capacity: 10})
	for i := 1; i <= 3; i++ {
		require.NoError(t, b.RecordTransition(&core.Transition{Tick: uint64(i)}))
	}

	got, err := b.RecentTransitions(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].Tick)
	assert.Equal(t, uint64(2), got[1].Tick)

	all, err := b.RecentTransitions(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCapacityEvictsOldest(t *testing.T) {
	b := New(config.MemoryConfig{Capacity: 3})
	for i := 1; i <= 5; i++ {
		b.RecordTransition(&core.Transition{Tick: uint64(i)})
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, uint64(2), b.Dropped())

	got, _ := b.RecentTransitions(10)
	ticks := make([]uint64, len(got))
	for i, tr := range got {
		ticks[i] = tr.Tick
	}
	assert.Equal(t, []uint64{5, 4, 3}, ticks)
}

func TestLatestFleetStats(t *testing.T) {
	b := New(config.MemoryConfig{Capacity: 2})

	_, ok, err := b.LatestFleetStats()
	require.NoError(t, err)
	assert.False(t, ok)

	b.RecordFleetStats(&core.FleetStats{Tick: 1})
	b.RecordFleetStats(&core.FleetStats{Tick: 2})
	b.RecordFleetStats(&core.FleetStats{Tick: 3})

	stats, ok, err := b.LatestFleetStats()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), stats.Tick)
}

func TestNew_ClampsCapacity(t *testing.T) {
	b := New(config.MemoryConfig{})
	b.RecordTransition(&core.Transition{Tick: 1})
	b.RecordTransition(&core.Transition{Tick: 2})
	assert.Equal(t, 1, b.Len())
}

func TestConcurrentRecording(t *testing.T) {
	b := New(config.MemoryConfig{Capacity: 1000})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.RecordTransition(&core.Transition{})
				b.RecordFleetStats(&core.FleetStats{})
				b.RecentTransitions(5)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, b.Len())
}
