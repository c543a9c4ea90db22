package realtime

import (
	"context"
	"testing"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBus_RelaysToLocalHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub()
	on5, on6 := newFakeSub("a"), newFakeSub("b")
	hub.Join(on5, ListTopic(5))
	hub.Join(on6, ListTopic(6))

	bus := NewRedisBus(rdb, hub)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	bus.Publish(TaskAdded(dom.Task{ID: 1, ListID: 5, Text: "first"}))
	bus.Publish(TaskDeleted(dom.Task{ID: 1, ListID: 5}))

	require.Eventually(t, func() bool { return len(on5.received()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, on6.received())
	assert.Contains(t, string(on5.received()[0].Data), `"action":"add"`)
	assert.Contains(t, string(on5.received()[1].Data), `"action":"delete"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bus did not stop")
	}

	// After Run returns the queue is closed and events are dropped.
	bus.Publish(TaskAdded(dom.Task{ID: 2, ListID: 5}))
	assert.Equal(t, 0, bus.queue.Len())
}

func TestRedisBus_IgnoresForeignMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub()
	sub := newFakeSub("a")
	hub.Join(sub, ListTopic(5))
	stray := newFakeSub("stray")
	hub.Join(stray, Topic("bogus:5"))

	bus := NewRedisBus(rdb, hub)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = bus.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumPat() > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, rdb.Publish(ctx, redisChannelPrefix+"list:5", "not json").Err())
	require.NoError(t, rdb.Publish(ctx, redisChannelPrefix+"list:5", `{"topic":"list:6","event":"task_update","data":{}}`).Err())
	require.NoError(t, rdb.Publish(ctx, redisChannelPrefix+"bogus:5", `{"topic":"bogus:5","event":"task_update","data":{}}`).Err())
	bus.Publish(TasksReordered(5, []int64{3, 1}))

	require.Eventually(t, func() bool { return len(sub.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, string(sub.received()[0].Data), `"task_ids":[3,1]`)
	assert.Empty(t, stray.received())
}
