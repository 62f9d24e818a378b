package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/chatzone/chatzone/internal/chatview"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Bridge implements chatview.RealtimeBridge over one websocket to
// /v1/realtime. Logical subscriptions are multiplexed on the socket by
// client-chosen IDs; event handlers run on the bridge's read goroutine,
// one at a time, in delivery order.
type Bridge struct {
	conn   *websocket.Conn
	logger *zap.Logger

	out  chan realtime.ClientFrame
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	subs map[string]*bridgeSub
}

type bridgeSub struct {
	id       string
	onEvent  chatview.EventHandler
	onStatus chatview.StatusHandler
	bridge   *Bridge
}

// Realtime dials the change-feed websocket using the client's session
// token. The caller owns the returned bridge and must Close it.
func (c *Client) Realtime(ctx context.Context) (*Bridge, error) {
	token := c.Token()
	if token == "" {
		return nil, chatview.ErrUnauthenticated
	}

	wsURL, err := websocketURL(c.baseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, chatview.ErrUnauthenticated
		}
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	b := &Bridge{
		conn:   conn,
		logger: c.logger,
		out:    make(chan realtime.ClientFrame, 16),
		done:   make(chan struct{}),
		subs:   make(map[string]*bridgeSub),
	}
	go b.readLoop()
	go b.writeLoop()
	return b, nil
}

func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/realtime"
	return u.String(), nil
}

// Subscribe registers a handler for one (table, kind) scope. The status
// handler fires with Connecting immediately, Subscribed when the server
// confirms, and Closed when the socket dies.
func (b *Bridge) Subscribe(ctx context.Context, table realtime.Table, kind realtime.Kind, onEvent chatview.EventHandler, onStatus chatview.StatusHandler) (chatview.Subscription, error) {
	select {
	case <-b.done:
		return nil, fmt.Errorf("realtime bridge is closed")
	default:
	}

	sub := &bridgeSub{
		id:       uuid.NewString(),
		onEvent:  onEvent,
		onStatus: onStatus,
		bridge:   b,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	sub.status(realtime.StatusConnecting)
	b.enqueue(realtime.ClientFrame{
		Action: realtime.ActionSubscribe,
		ID:     sub.id,
		Table:  table,
		Type:   kind,
	})
	return sub, nil
}

// Unsubscribe is fire-and-forget: the registration is gone locally as
// soon as this returns, the server learns asynchronously. An event
// already in flight may still arrive and will find no handler here;
// the dispatch drops it.
func (s *bridgeSub) Unsubscribe() {
	b := s.bridge

	b.mu.Lock()
	_, live := b.subs[s.id]
	delete(b.subs, s.id)
	b.mu.Unlock()

	if live {
		b.enqueue(realtime.ClientFrame{Action: realtime.ActionUnsubscribe, ID: s.id})
	}
}

func (s *bridgeSub) status(status realtime.Status) {
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

// Close tears the socket down and reports Closed to every remaining
// subscription.
func (b *Bridge) Close() error {
	b.stop()
	return b.conn.Close()
}

func (b *Bridge) stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) enqueue(frame realtime.ClientFrame) {
	select {
	case b.out <- frame:
	case <-b.done:
	}
}

func (b *Bridge) writeLoop() {
	for {
		select {
		case <-b.done:
			return
		case frame := <-b.out:
			if err := b.conn.WriteJSON(frame); err != nil {
				b.stop()
				return
			}
		}
	}
}

func (b *Bridge) readLoop() {
	defer b.closed()

	for {
		var frame realtime.ServerFrame
		if err := b.conn.ReadJSON(&frame); err != nil {
			return
		}
		b.dispatch(frame)
	}
}

func (b *Bridge) dispatch(frame realtime.ServerFrame) {
	b.mu.Lock()
	sub := b.subs[frame.ID]
	b.mu.Unlock()

	// Unknown ID: the subscription was cancelled while this frame was in
	// flight. Stray deliveries are expected, dropping is the contract.
	if sub == nil {
		return
	}

	if frame.Status != "" {
		sub.status(frame.Status)
	}
	if frame.Event != nil {
		ev, err := realtime.DecodeEnvelope(*frame.Event)
		if err != nil {
			b.logger.Warn("discarding malformed change event", zap.Error(err))
			return
		}
		sub.onEvent(ev)
	}
}

// closed runs when the read loop exits for any reason: the feed is over,
// every remaining subscription hears Closed exactly once.
func (b *Bridge) closed() {
	b.stop()

	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*bridgeSub)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.status(realtime.StatusClosed)
	}
	_ = b.conn.Close()
}
