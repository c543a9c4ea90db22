package realtime

import (
	"log/slog"
	"sync"
)

// Subscriber is one connection as seen by the hub.
type Subscriber interface {
	ID() string
	// Send queues frame without blocking. It reports false when the
	// subscriber cannot accept it (buffer full or already closed).
	Send(frame []byte) bool
	Close()
	// Closed reports whether Close has been called.
	Closed() bool
}

// Hub tracks which subscribers joined which topics and fans events out.
type Hub struct {
	mu     sync.Mutex
	topics map[Topic]map[string]Subscriber
	joined map[string]map[Topic]struct{}
	subs   map[string]Subscriber
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[Topic]map[string]Subscriber),
		joined: make(map[string]map[Topic]struct{}),
		subs:   make(map[string]Subscriber),
	}
}

// Join adds s to topic. Joining twice is a no-op. It reports false once the
// hub or the subscriber is closed.
func (h *Hub) Join(s Subscriber, topic Topic) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Dropped subscribers are closed under h.mu, so this check cannot race
	// with a concurrent drop.
	if h.closed || s.Closed() {
		return false
	}
	members, ok := h.topics[topic]
	if !ok {
		members = make(map[string]Subscriber)
		h.topics[topic] = members
	}
	members[s.ID()] = s

	topics, ok := h.joined[s.ID()]
	if !ok {
		topics = make(map[Topic]struct{})
		h.joined[s.ID()] = topics
	}
	topics[topic] = struct{}{}
	h.subs[s.ID()] = s
	return true
}

// Leave removes s from topic.
func (h *Hub) Leave(s Subscriber, topic Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s.ID(), topic)
}

// Unregister removes s from every topic it joined.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(s.ID())
}

// Publish delivers ev to every subscriber currently joined to ev.Topic.
// Subscribers that cannot keep up are unregistered and closed.
func (h *Hub) Publish(ev Event) {
	msg := encodeFrame(ev.Name, ev.Data)

	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []Subscriber
	for _, s := range h.topics[ev.Topic] {
		if !s.Send(msg) {
			slow = append(slow, s)
		}
	}
	for _, s := range slow {
		slog.Warn("dropping slow subscriber", "subscriber", s.ID(), "topic", ev.Topic)
		h.unregisterLocked(s.ID())
		s.Close()
	}
}

// Subscribers returns how many subscribers joined topic.
func (h *Hub) Subscribers(topic Topic) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Close disconnects every subscriber. Later joins are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		h.unregisterLocked(id)
		s.Close()
	}
}

func (h *Hub) leaveLocked(id string, topic Topic) {
	if members, ok := h.topics[topic]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	if topics, ok := h.joined[id]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(h.joined, id)
			delete(h.subs, id)
		}
	}
}

func (h *Hub) unregisterLocked(id string) {
	for topic := range h.joined[id] {
		h.leaveLocked(id, topic)
	}
	delete(h.joined, id)
	delete(h.subs, id)
}
