package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample is a simple struct for testing the generic queue
type sample struct {
	Measurement string
	Value       float64
}

func TestQueue_New(t *testing.T) {
	q := New[sample]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PushPop(t *testing.T) {
	q := New[sample]()

	_, ok := q.Pop()
	assert.False(t, ok, "pop from empty queue")

	assert.Zero(t, q.Push(sample{"route", 1}, sample{"zone", 2}))
	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "route", first.Measurement)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[sample]()
	q.Push(sample{"a", 1}, sample{"b", 2}, sample{"c", 3})

	result := q.GetAndEmpty()
	require.Len(t, result, 3)
	assert.Equal(t, "a", result[0].Measurement)
	assert.Equal(t, "c", result[2].Measurement)
	assert.True(t, q.Empty())
}

func TestQueue_BoundedEvictsOldest(t *testing.T) {
	q := NewBounded[int](3)

	assert.Zero(t, q.Push(1, 2, 3))
	assert.Equal(t, 2, q.Push(4, 5))
	assert.Equal(t, []int{3, 4, 5}, q.GetAndEmpty())
	assert.Equal(t, uint64(2), q.Dropped())
}

func TestQueue_Requeue(t *testing.T) {
	q := NewBounded[int](4)
	q.Push(3, 4)

	assert.Zero(t, q.Requeue([]int{1, 2}))
	assert.Equal(t, []int{1, 2, 3, 4}, q.GetAndEmpty())

	q.Push(5, 6, 7)
	assert.Equal(t, 1, q.Requeue([]int{3, 4}))
	assert.Equal(t, []int{4, 5, 6, 7}, q.GetAndEmpty())
}

func TestQueue_Unbounded(t *testing.T) {
	q := NewBounded[int](0)
	for i := 0; i < 1000; i++ {
		q.Push(i)
	}
	assert.Equal(t, 1000, q.Len())
	assert.Zero(t, q.Dropped())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, q.Len())

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())
}

func TestQueue_ConcurrentGetAndEmpty(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	var wg sync.WaitGroup
	results := make(chan []int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.GetAndEmpty()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	assert.Equal(t, 100, total)
}
