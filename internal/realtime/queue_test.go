package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for _, topic := range []Topic{"list:1", "list:2", "list:3"} {
		require.True(t, q.Enqueue(Event{Topic: topic}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []Topic{"list:1", "list:2", "list:3"} {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, e.Topic)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Topic: "list:1"})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for signal")
	}
	e, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, Topic("list:1"), e.Topic)
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(Event{Topic: "list:1"}))
	select {
	case _, ok := <-q.Wait():
		assert.False(t, ok, "signal channel should be closed")
	default:
		t.Fatal("closed queue should wake waiters")
	}
}
