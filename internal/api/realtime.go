package api

import (
	"net/http"
	"sync"

	"github.com/chatzone/chatzone/internal/middleware"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RealtimeHandler upgrades /v1/realtime to a websocket carrying the
// change feed. One socket multiplexes many logical subscriptions; the
// client names each with its own ID and scopes it to a (table, kind).
type RealtimeHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, logger: logger}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is token-authenticated; the browser same-origin check adds
	// nothing for non-browser clients and the TUI has no Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream handles GET /v1/realtime (behind AuthMiddleware).
func (h *RealtimeHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &streamClient{
		conn:   conn,
		hub:    h.hub,
		logger: h.logger.With(zap.String("user_id", middleware.GetUserID(c).String())),
		out:    make(chan realtime.ServerFrame, 64),
		done:   make(chan struct{}),
		subs:   make(map[string]*realtime.HubSubscription),
	}
	client.run()
}

// streamClient owns one websocket connection: a read loop for
// subscribe/unsubscribe frames, a single writer goroutine (gorilla
// permits one concurrent writer per connection), and one forwarder
// goroutine per live hub subscription.
type streamClient struct {
	conn   *websocket.Conn
	hub    *realtime.Hub
	logger *zap.Logger

	out  chan realtime.ServerFrame
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	subs map[string]*realtime.HubSubscription
}

func (sc *streamClient) run() {
	go sc.writeLoop()
	sc.readLoop()
	sc.teardown()
}

func (sc *streamClient) stop() {
	sc.once.Do(func() { close(sc.done) })
}

func (sc *streamClient) writeLoop() {
	for {
		select {
		case <-sc.done:
			return
		case frame := <-sc.out:
			if err := sc.conn.WriteJSON(frame); err != nil {
				sc.stop()
				return
			}
		}
	}
}

func (sc *streamClient) readLoop() {
	for {
		var frame realtime.ClientFrame
		if err := sc.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Action {
		case realtime.ActionSubscribe:
			sc.subscribe(frame)
		case realtime.ActionUnsubscribe:
			sc.unsubscribe(frame.ID)
		default:
			sc.logger.Warn("unknown realtime action", zap.String("action", frame.Action))
		}
	}
}

func (sc *streamClient) subscribe(frame realtime.ClientFrame) {
	if frame.ID == "" {
		sc.logger.Warn("subscribe frame without id")
		return
	}

	sc.mu.Lock()
	if _, exists := sc.subs[frame.ID]; exists {
		sc.mu.Unlock()
		sc.logger.Warn("duplicate subscription id", zap.String("id", frame.ID))
		return
	}
	sub := sc.hub.Subscribe(frame.Table, frame.Type)
	sc.subs[frame.ID] = sub
	sc.mu.Unlock()

	go sc.forward(frame.ID, sub)
	sc.send(realtime.ServerFrame{ID: frame.ID, Status: realtime.StatusSubscribed})
}

func (sc *streamClient) unsubscribe(id string) {
	sc.mu.Lock()
	sub := sc.subs[id]
	delete(sc.subs, id)
	sc.mu.Unlock()

	// Unsubscribe closes the hub channel, which ends the forwarder.
	sc.hub.Unsubscribe(sub)
}

// forward pumps one hub subscription into the shared write channel until
// the subscription is cancelled or the connection dies.
func (sc *streamClient) forward(id string, sub *realtime.HubSubscription) {
	for ev := range sub.C() {
		env, err := ev.Envelope()
		if err != nil {
			sc.logger.Error("failed to encode change event", zap.Error(err))
			continue
		}
		sc.send(realtime.ServerFrame{ID: id, Event: &env})
	}
}

func (sc *streamClient) send(frame realtime.ServerFrame) {
	select {
	case sc.out <- frame:
	case <-sc.done:
	}
}

func (sc *streamClient) teardown() {
	sc.stop()

	sc.mu.Lock()
	subs := sc.subs
	sc.subs = make(map[string]*realtime.HubSubscription)
	sc.mu.Unlock()

	for _, sub := range subs {
		sc.hub.Unsubscribe(sub)
	}
	_ = sc.conn.Close()
}
