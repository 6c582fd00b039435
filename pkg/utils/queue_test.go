package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueue_Order(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 3; i++ {
		q.Push(i)
	}
	assert.Equal(t, 3, q.Len())

	for i := 0; i < 3; i++ {
		item, ok := q.TryPop()
		assert.True(t, ok)
		assert.Equal(t, i, item)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueue_PopTimeout(t *testing.T) {
	q := NewQueue[string]()

	start := time.Now()
	_, ok := q.PopTimeout(20 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Push("late")
	}()
	item, ok := q.PopTimeout(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "late", item)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(i)
			}
		}()
	}

	received := 0
	for received < 400 {
		if _, ok := q.PopTimeout(time.Second); !ok {
			break
		}
		received++
	}
	wg.Wait()
	assert.Equal(t, 400, received)
	assert.Equal(t, 0, q.Len())
}
