package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const redisChannelPrefix = "tasksync:topic:"

// RedisBus fans events out across service instances. Publish enqueues
// locally; Run pushes the queue to Redis and relays every event received
// from Redis into the local hub, including this instance's own events.
type RedisBus struct {
	rdb   *redis.Client
	hub   *Hub
	queue *eventQueue
}

func NewRedisBus(rdb *redis.Client, hub *Hub) *RedisBus {
	return &RedisBus{rdb: rdb, hub: hub, queue: newEventQueue()}
}

// Publish never blocks. Events published after Run returned are dropped.
func (b *RedisBus) Publish(ev Event) {
	if !b.queue.Enqueue(ev) {
		slog.Warn("bus closed, dropping event", "topic", ev.Topic, "event", ev.Name)
	}
}

// Run subscribes, then drains the publish queue until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()
	defer b.queue.Close()

	// Wait for the subscription so our own events are received back.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	slog.Info("redis bus subscribed", "pattern", redisChannelPrefix+"*")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.publishLoop(ctx) })
	g.Go(func() error { return b.relayLoop(ctx, pubsub.Channel()) })
	return g.Wait()
}

func (b *RedisBus) publishLoop(ctx context.Context) error {
	for {
		for {
			ev, ok := b.queue.TryDequeue()
			if !ok {
				break
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Error("encode event", "topic", ev.Topic, "err", err)
				continue
			}
			if err := b.rdb.Publish(ctx, redisChannelPrefix+string(ev.Topic), payload).Err(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("redis publish", "topic", ev.Topic, "err", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-b.queue.Wait():
		}
	}
}

func (b *RedisBus) relayLoop(ctx context.Context, ch <-chan *redis.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("decode relayed event", "channel", msg.Channel, "err", err)
				continue
			}
			if want := strings.TrimPrefix(msg.Channel, redisChannelPrefix); Topic(want) != ev.Topic {
				slog.Warn("relayed event topic mismatch", "channel", msg.Channel, "topic", ev.Topic)
				continue
			}
			if _, _, err := ParseTopic(string(ev.Topic)); err != nil {
				slog.Warn("relayed event on unknown topic", "channel", msg.Channel, "err", err)
				continue
			}
			b.hub.Publish(ev)
		}
	}
}
