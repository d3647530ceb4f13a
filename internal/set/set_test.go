package set

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(s *Set[int, string]) []int {
	var out []int
	s.Range(func(k int, _ string) bool {
		out = append(out, k)
		return true
	})
	sort.Ints(out)
	return out
}

func TestSet_AddIfAbsent(t *testing.T) {
	s := New[int, string]()

	assert.True(t, s.Add(1, "a"))
	assert.False(t, s.Add(1, "b"), "duplicate add must be ignored")

	v, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, s.Len())
}

func TestSet_RemoveIfPresent(t *testing.T) {
	s := New[int, string]()
	s.Add(1, "a")
	s.Add(2, "b")
	s.Add(3, "c")

	assert.True(t, s.Remove(1))
	assert.False(t, s.Remove(1), "second remove must be a no-op")
	assert.False(t, s.Remove(42))

	assert.Equal(t, []int{2, 3}, keys(s))
	v, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, "c", v, "swap-remove must keep the index consistent")
}

func TestSet_RemoveDuringRangeIsDeferred(t *testing.T) {
	s := New[int, string]()
	for i := 1; i <= 5; i++ {
		s.Add(i, "v")
	}

	var visited []int
	s.Range(func(k int, _ string) bool {
		visited = append(visited, k)
		if k == 1 {
			assert.True(t, s.Remove(4))
			assert.True(t, s.Remove(1))
			assert.False(t, s.Contains(4))
			assert.Equal(t, 3, s.Len())
		}
		return true
	})

	assert.Equal(t, []int{1, 2, 3, 5}, visited, "element removed mid-range must not be visited")
	assert.Equal(t, []int{2, 3, 5}, keys(s))
}

func TestSet_ReAddDuringRangeCancelsRemoval(t *testing.T) {
	s := New[int, string]()
	s.Add(1, "a")
	s.Add(2, "b")

	s.Range(func(k int, _ string) bool {
		if k == 1 {
			s.Remove(2)
			assert.True(t, s.Add(2, "c"))
		}
		return true
	})

	v, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, "c", v)
	assert.Equal(t, 2, s.Len())
}

func TestSet_NestedRangeFlushesOnce(t *testing.T) {
	s := New[int, string]()
	s.Add(1, "a")
	s.Add(2, "b")

	s.Range(func(_ int, _ string) bool {
		s.Range(func(k int, _ string) bool {
			s.Remove(k)
			return true
		})
		assert.Equal(t, 0, s.Len())
		return true
	})

	assert.Empty(t, keys(s))
	assert.Equal(t, 0, s.Len())
}

func TestSet_RangeStopsEarly(t *testing.T) {
	s := New[int, string]()
	s.Add(1, "a")
	s.Add(2, "b")

	count := 0
	s.Range(func(int, string) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestSet_Clear(t *testing.T) {
	s := New[int, string]()
	s.Add(1, "a")
	s.Add(2, "b")

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains(1))
	assert.True(t, s.Add(1, "again"))
}

func TestSet_ClearDuringRange(t *testing.T) {
	s := New[int, string]()
	s.Add(1, "a")
	s.Add(2, "b")

	s.Range(func(int, string) bool {
		s.Clear()
		return true
	})
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Values())
}
