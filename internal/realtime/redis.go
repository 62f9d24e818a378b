package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// changeChannel is the redis pub/sub channel every node publishes to and
// subscribes from. One channel for all tables: the envelope carries the
// table tag, and per-subscriber filtering happens in the Hub.
const changeChannel = "chatzone:changes"

// Broker bridges the in-process Hub across server nodes via redis
// pub/sub. A message inserted on one node reaches websocket subscribers
// connected to any node: handlers publish to redis, Run pumps the redis
// stream back into the local hub.
type Broker struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewBroker(ctx context.Context, redisURL string, hub *Hub, logger *zap.Logger) (*Broker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Broker{client: client, hub: hub, logger: logger}, nil
}

func (b *Broker) Close() error {
	return b.client.Close()
}

// Publish sends the event to every node, this one included. Local
// delivery happens when Run receives the event back from redis; one
// path for all events keeps ordering identical on every node.
func (b *Broker) Publish(ctx context.Context, ev Event) error {
	env, err := ev.Envelope()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, changeChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Run consumes the redis channel and feeds the local hub until the
// context is cancelled. Malformed payloads are logged and skipped; one
// bad publisher must not kill the feed for everyone.
func (b *Broker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, changeChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to change channel: %w", err)
	}

	b.logger.Info("change-event broker running", zap.String("channel", changeChannel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				b.logger.Warn("discarding malformed change event", zap.Error(err))
				continue
			}
			_ = b.hub.Publish(ctx, ev)
		}
	}
}
