package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Publisher is the write side of the change feed. Handlers publish through
// this interface so they don't care whether events fan out in-process
// (Hub) or across nodes (Broker).
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Hub fans committed-row events out to in-process subscribers. Each
// subscription names a (table, kind) pair and receives only matching
// events, in publish order, until unsubscribed.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*HubSubscription
	nextID uint64
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]*HubSubscription),
		logger: logger,
	}
}

// HubSubscription is one live registration. Its channel is closed by
// Unsubscribe; receivers ranging over C() terminate cleanly.
type HubSubscription struct {
	id    uint64
	table Table
	kind  Kind
	ch    chan Event
}

// C is the event stream for this subscription.
func (s *HubSubscription) C() <-chan Event {
	return s.ch
}

// Subscribe registers interest in events for one (table, kind) pair.
// The channel is buffered; a subscriber that stops draining loses events
// rather than blocking every other subscriber.
func (h *Hub) Subscribe(table Table, kind Kind) *HubSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &HubSubscription{
		id:    h.nextID,
		table: table,
		kind:  kind,
		ch:    make(chan Event, 64),
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the registration and closes its channel. Idempotent:
// a second call on the same subscription is a no-op.
func (h *Hub) Unsubscribe(sub *HubSubscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	// Publish sends while holding the read lock, so closing under the
	// write lock cannot race a send on this channel.
	close(sub.ch)
}

// Publish delivers the event to every matching subscriber. Non-blocking:
// a full subscriber buffer drops the event for that subscriber only.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.table != ev.Table || sub.kind != ev.Kind {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("dropping change event for slow subscriber",
				zap.Uint64("subscription_id", sub.id),
				zap.String("table", string(ev.Table)),
			)
		}
	}
	return nil
}
