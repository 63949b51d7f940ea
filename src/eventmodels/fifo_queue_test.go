package eventmodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOQueue(t *testing.T) {
	t.Run("items are dequeued in order", func(t *testing.T) {
		q := NewFIFOQueue[int]("test", 3)
		done := make(chan struct{})

		assert.True(t, q.Enqueue(1, done))
		assert.True(t, q.Enqueue(2, done))
		assert.True(t, q.Enqueue(3, done))
		q.Close()

		var got []int
		for item := range q.Items() {
			got = append(got, item)
		}

		assert.Equal(t, []int{1, 2, 3}, got)
		assert.Equal(t, uint(3), q.Enqueued())
	})

	t.Run("enqueue blocks while full", func(t *testing.T) {
		q := NewFIFOQueue[int]("test", 1)
		done := make(chan struct{})

		require.True(t, q.Enqueue(1, done))

		accepted := make(chan bool)
		go func() {
			accepted <- q.Enqueue(2, done)
		}()

		select {
		case <-accepted:
			t.Fatal("enqueue should block while the queue is full")
		case <-time.After(50 * time.Millisecond):
		}

		assert.Equal(t, 1, <-q.Items())
		assert.True(t, <-accepted)
		assert.Equal(t, 2, <-q.Items())
	})

	t.Run("enqueue gives up when done is closed", func(t *testing.T) {
		q := NewFIFOQueue[int]("test", 0)
		done := make(chan struct{})
		close(done)

		assert.False(t, q.Enqueue(1, done))
		assert.Equal(t, uint(0), q.Enqueued())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		q := NewFIFOQueue[string]("test", 1)
		q.Close()
		q.Close()

		_, ok := <-q.Items()
		assert.False(t, ok)
	})
}
