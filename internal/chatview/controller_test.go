package chatview_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chatzone/chatzone/internal/chatview"
	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	user *models.User
	err  error
}

func (f *fakeSession) CurrentUser(ctx context.Context) (*models.User, error) {
	return f.user, f.err
}

// pairLoader serves a canned history per counterpart.
type pairLoader struct {
	byCounterpart map[uuid.UUID][]models.Message
	err           error
}

func (f *pairLoader) ListConversation(ctx context.Context, counterpartID uuid.UUID) ([]models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byCounterpart[counterpartID], nil
}

// fakeBridge counts registrations and lets tests push events, including
// to cancelled subscriptions (the stray in-flight delivery case).
type fakeBridge struct {
	mu           sync.Mutex
	subscribed   int
	unsubscribed int
	subs         []*fakeBridgeSub
}

type fakeBridgeSub struct {
	bridge   *fakeBridge
	table    realtime.Table
	kind     realtime.Kind
	onEvent  chatview.EventHandler
	onStatus chatview.StatusHandler
	live     bool
}

func (b *fakeBridge) Subscribe(ctx context.Context, table realtime.Table, kind realtime.Kind, onEvent chatview.EventHandler, onStatus chatview.StatusHandler) (chatview.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &fakeBridgeSub{bridge: b, table: table, kind: kind, onEvent: onEvent, onStatus: onStatus, live: true}
	b.subs = append(b.subs, sub)
	b.subscribed++
	return sub, nil
}

func (s *fakeBridgeSub) Unsubscribe() {
	s.bridge.mu.Lock()
	defer s.bridge.mu.Unlock()

	if s.live {
		s.live = false
		s.bridge.unsubscribed++
	}
}

// Deliver routes an event to every live matching subscription.
func (b *fakeBridge) Deliver(ev realtime.Event) {
	b.mu.Lock()
	subs := append([]*fakeBridgeSub(nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		if s.live && s.table == ev.Table && s.kind == ev.Kind {
			s.onEvent(ev)
		}
	}
}

// SetStatus pushes a connection status to every live subscription.
func (b *fakeBridge) SetStatus(status realtime.Status) {
	b.mu.Lock()
	subs := append([]*fakeBridgeSub(nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		if s.live && s.onStatus != nil {
			s.onStatus(status)
		}
	}
}

func (b *fakeBridge) counts() (subscribed, unsubscribed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribed, b.unsubscribed
}

func (b *fakeBridge) lastSub() *fakeBridgeSub {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[len(b.subs)-1]
}

func newTestController(t *testing.T, bridge *fakeBridge, loader *pairLoader, sender *fakeSender) *chatview.Controller {
	t.Helper()
	return chatview.NewController(chatview.Deps{
		Session: &fakeSession{user: &models.User{ID: userA, Email: "a@example.com"}},
		Users: &fakeUserLister{users: []models.User{
			{ID: userB, Email: "b@example.com"},
			{ID: userC, Email: "c@example.com"},
		}},
		Messages: loader,
		Sender:   sender,
		Bridge:   bridge,
	})
}

func TestControllerStartUnauthenticated(t *testing.T) {
	bridge := &fakeBridge{}
	c := chatview.NewController(chatview.Deps{
		Session: &fakeSession{err: chatview.ErrUnauthenticated},
		Users:   &fakeUserLister{},
		Bridge:  bridge,
	})

	err := c.Start(context.Background())
	require.ErrorIs(t, err, chatview.ErrUnauthenticated)

	subscribed, _ := bridge.counts()
	require.Zero(t, subscribed)
}

func TestControllerStartNilUserIsUnauthenticated(t *testing.T) {
	c := chatview.NewController(chatview.Deps{
		Session: &fakeSession{},
		Users:   &fakeUserLister{},
		Bridge:  &fakeBridge{},
	})
	require.ErrorIs(t, c.Start(context.Background()), chatview.ErrUnauthenticated)
}

func TestControllerStartLoadsDirectory(t *testing.T) {
	bridge := &fakeBridge{}
	c := newTestController(t, bridge, &pairLoader{}, &fakeSender{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.Len(t, c.Users(), 2)
	require.Equal(t, userA, c.Self().ID)
	require.False(t, c.Active())

	subscribed, _ := bridge.counts()
	require.Equal(t, 1, subscribed) // directory updates only, no conversation yet
}

func TestControllerSelectAdmitsLiveEvents(t *testing.T) {
	bridge := &fakeBridge{}
	loader := &pairLoader{byCounterpart: map[uuid.UUID][]models.Message{
		userB: {msg(1, userA, userB, "hi", t0)},
	}}
	c := newTestController(t, bridge, loader, &fakeSender{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.NoError(t, c.Select(context.Background(), userB))
	require.True(t, c.Active())
	require.Equal(t, userB, c.Counterpart())

	bridge.Deliver(realtime.MessageInserted(msg(2, userB, userA, "hey", t0.Add(time.Second))))
	bridge.Deliver(realtime.MessageInserted(msg(3, userC, userA, "other pair", t0.Add(time.Second))))

	got := c.Messages()
	require.Len(t, got, 2)
	require.Equal(t, "hi", got[0].Text)
	require.Equal(t, "hey", got[1].Text)
}

func TestControllerSwitchCounterpart(t *testing.T) {
	bridge := &fakeBridge{}
	loader := &pairLoader{byCounterpart: map[uuid.UUID][]models.Message{
		userB: {msg(1, userA, userB, "with b", t0)},
		userC: {msg(2, userA, userC, "with c", t0)},
	}}
	c := newTestController(t, bridge, loader, &fakeSender{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.NoError(t, c.Select(context.Background(), userB))
	staleSub := bridge.lastSub()

	require.NoError(t, c.Select(context.Background(), userC))
	require.False(t, staleSub.live, "previous subscription must be cancelled on switch")

	// Only messages between self and the new counterpart remain.
	got := c.Messages()
	require.Len(t, got, 1)
	require.Equal(t, "with c", got[0].Text)

	// A stray in-flight event for the old pair, delivered on the
	// already-cancelled subscription, must not reach the new store.
	staleSub.onEvent(realtime.MessageInserted(msg(9, userB, userA, "late for b", t0.Add(time.Minute))))
	require.Len(t, c.Messages(), 1)

	// The live subscription still admits events for the new pair.
	bridge.Deliver(realtime.MessageInserted(msg(10, userC, userA, "fresh for c", t0.Add(time.Minute))))
	require.Len(t, c.Messages(), 2)
}

func TestControllerDeselect(t *testing.T) {
	bridge := &fakeBridge{}
	c := newTestController(t, bridge, &pairLoader{}, &fakeSender{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.NoError(t, c.Select(context.Background(), userB))
	c.Deselect()

	require.False(t, c.Active())
	require.Nil(t, c.Messages())
	require.Equal(t, uuid.Nil, c.Counterpart())

	subscribed, unsubscribed := bridge.counts()
	require.Equal(t, subscribed-1, unsubscribed) // only the directory sub stays
}

func TestControllerCloseReleasesEverySubscription(t *testing.T) {
	bridge := &fakeBridge{}
	loader := &pairLoader{byCounterpart: map[uuid.UUID][]models.Message{}}
	c := newTestController(t, bridge, loader, &fakeSender{})
	require.NoError(t, c.Start(context.Background()))

	require.NoError(t, c.Select(context.Background(), userB))
	require.NoError(t, c.Select(context.Background(), userC))
	c.Close()

	subscribed, unsubscribed := bridge.counts()
	require.Equal(t, subscribed, unsubscribed, "unmount must leave zero live subscriptions")
}

func TestControllerDirectoryUpdates(t *testing.T) {
	bridge := &fakeBridge{}
	changes := 0
	c := chatview.NewController(chatview.Deps{
		Session:  &fakeSession{user: &models.User{ID: userA}},
		Users:    &fakeUserLister{users: []models.User{{ID: userB, Name: "Bea"}}},
		Messages: &pairLoader{},
		Sender:   &fakeSender{},
		Bridge:   bridge,
		OnChange: func() { changes++ },
	})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	bridge.Deliver(userUpdate(realtime.UserPatch{ID: userB, IsOnline: boolptr(true)}))

	users := c.Users()
	require.True(t, users[0].IsOnline)
	require.Equal(t, "Bea", users[0].Name)
	require.Positive(t, changes)
}

func TestControllerConnectionStatus(t *testing.T) {
	bridge := &fakeBridge{}
	c := newTestController(t, bridge, &pairLoader{}, &fakeSender{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.Equal(t, realtime.StatusConnecting, c.Status())
	bridge.SetStatus(realtime.StatusSubscribed)
	require.Equal(t, realtime.StatusSubscribed, c.Status())
}

func TestControllerSubmitWhileIdleIsNoOp(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(t, &fakeBridge{}, &pairLoader{}, sender)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	c.Composer().SetText("hello")
	require.NoError(t, c.Submit(context.Background()))
	require.Empty(t, sender.sent)
	require.Equal(t, "hello", c.Composer().Text())
}

func TestControllerSubmitSendsToCounterpart(t *testing.T) {
	sender := &fakeSender{}
	c := newTestController(t, &fakeBridge{}, &pairLoader{}, sender)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.NoError(t, c.Select(context.Background(), userB))
	c.Composer().SetText("hello")
	require.NoError(t, c.Submit(context.Background()))

	require.Len(t, sender.sent, 1)
	require.Equal(t, userB, sender.sent[0].ReceiverID)
	require.Empty(t, c.Composer().Text())
}

func TestControllerSelectHistoryFailureDegrades(t *testing.T) {
	bridge := &fakeBridge{}
	loader := &pairLoader{err: fmt.Errorf("read failed")}
	c := newTestController(t, bridge, loader, &fakeSender{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	// The conversation still opens with an empty list and a live feed.
	require.NoError(t, c.Select(context.Background(), userB))
	require.True(t, c.Active())
	require.Empty(t, c.Messages())

	bridge.Deliver(realtime.MessageInserted(msg(1, userB, userA, "still live", t0)))
	require.Len(t, c.Messages(), 1)
}
