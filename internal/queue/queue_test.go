package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testItem is a simple struct for testing the generic queue
type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Push(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Name: "first"})
	assert.Equal(t, 1, q.Len())

	q.Push(testItem{ID: 2}, testItem{ID: 3})
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []testItem{{ID: 1, Name: "first"}, {ID: 2}, {ID: 3}}, q.Items())
}

func TestQueue_Pop(t *testing.T) {
	q := New[testItem]()

	_, ok := q.Pop()
	assert.False(t, ok, "pop from empty queue")

	q.Push(testItem{ID: 1, Name: "first"}, testItem{ID: 2, Name: "second"})
	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, testItem{ID: 1, Name: "first"}, first)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	q.Clear()

	assert.True(t, q.Empty())
	q.Push(4)
	assert.Equal(t, []int{4}, q.Items())
}

func TestQueue_Drain(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	var got []int
	q.Drain(func(v int) {
		got = append(got, v)
		if v == 2 {
			q.Push(10)
		}
	})

	assert.Equal(t, []int{1, 2, 3, 10}, got)
	assert.True(t, q.Empty())
}

func TestQueue_DrainEmpty(t *testing.T) {
	q := New[int]()
	called := false
	q.Drain(func(int) { called = true })
	assert.False(t, called)
}
