package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	id  string
	cap int

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeSub(id string) *fakeSub { return &fakeSub{id: id, cap: 1 << 20} }

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Send(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.frames) >= f.cap {
		return false
	}
	f.frames = append(f.frames, b)
	return true
}

func (f *fakeSub) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSub) received() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]frame, len(f.frames))
	for i, b := range f.frames {
		_ = json.Unmarshal(b, &out[i])
	}
	return out
}

func (f *fakeSub) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestHub_PublishIsTopicScoped(t *testing.T) {
	h := NewHub()
	on5, on6 := newFakeSub("a"), newFakeSub("b")
	h.Join(on5, ListTopic(5))
	h.Join(on6, ListTopic(6))

	h.Publish(TaskAdded(dom.Task{ID: 1, ListID: 5, Text: "Buy milk", Priority: dom.PriorityMedium}))

	require.Len(t, on5.received(), 1)
	assert.Empty(t, on6.received())

	got := on5.received()[0]
	assert.Equal(t, EventTaskUpdate, got.Event)
	var payload TaskUpdate
	require.NoError(t, json.Unmarshal(got.Data, &payload))
	assert.Equal(t, ActionAdd, payload.Action)
	assert.Equal(t, "Buy milk", payload.Task.Text)
}

func TestHub_LeaveAndUnregister(t *testing.T) {
	h := NewHub()
	s := newFakeSub("a")
	h.Join(s, ListTopic(5))
	h.Join(s, UserTopic(1))
	h.Join(s, ListTopic(5))
	assert.Equal(t, 1, h.Subscribers(ListTopic(5)))

	h.Leave(s, ListTopic(5))
	h.Publish(TasksReordered(5, []int64{1}))
	assert.Empty(t, s.received())

	h.Publish(ListDeleted(1, 9))
	assert.Len(t, s.received(), 1)

	h.Unregister(s)
	assert.Equal(t, 0, h.Subscribers(UserTopic(1)))
	h.Publish(ListDeleted(1, 10))
	assert.Len(t, s.received(), 1)
}

func TestHub_OrderPerTopic(t *testing.T) {
	h := NewHub()
	subs := []*fakeSub{newFakeSub("a"), newFakeSub("b"), newFakeSub("c")}
	for _, s := range subs {
		h.Join(s, ListTopic(1))
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.Publish(TaskDeleted(dom.Task{ID: int64(w*1000 + i), ListID: 1}))
			}
		}(w)
	}
	wg.Wait()

	want := subs[0].received()
	require.Len(t, want, 200)
	for _, s := range subs[1:] {
		assert.Equal(t, want, s.received(), "subscriber %s saw a different order", s.id)
	}
}

func TestHub_DropsSlowSubscriberOnly(t *testing.T) {
	h := NewHub()
	slow := &fakeSub{id: "slow", cap: 1}
	fast := newFakeSub("fast")
	h.Join(slow, ListTopic(1))
	h.Join(fast, ListTopic(1))

	for i := 0; i < 3; i++ {
		h.Publish(TasksReordered(1, []int64{int64(i)}))
	}

	assert.True(t, slow.Closed())
	assert.Len(t, slow.received(), 1)
	assert.Len(t, fast.received(), 3)
	assert.False(t, fast.Closed())
	assert.Equal(t, 1, h.Subscribers(ListTopic(1)))
}

func TestHub_JoinRefusesClosedSubscriber(t *testing.T) {
	h := NewHub()
	slow := &fakeSub{id: "slow", cap: 1}
	require.True(t, h.Join(slow, ListTopic(1)))
	h.Publish(TasksReordered(1, []int64{1}))
	h.Publish(TasksReordered(1, []int64{2}))
	require.True(t, slow.Closed())

	assert.False(t, h.Join(slow, ListTopic(2)))
	assert.False(t, h.Join(slow, ListTopic(1)))
	assert.Equal(t, 0, h.Subscribers(ListTopic(1)))
	assert.Equal(t, 0, h.Subscribers(ListTopic(2)))
}

func TestHub_CloseDisconnectsEveryone(t *testing.T) {
	h := NewHub()
	subs := make([]*fakeSub, 3)
	for i := range subs {
		subs[i] = newFakeSub(fmt.Sprint(i))
		h.Join(subs[i], UserTopic(int64(i+1)))
	}

	h.Close()
	for _, s := range subs {
		assert.True(t, s.Closed())
	}
	assert.False(t, h.Join(newFakeSub("late"), UserTopic(1)))
}
