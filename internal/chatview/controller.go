package chatview

import (
	"context"
	"fmt"
	"sync"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// subscriptionName keys the controller's ownership record. Every live
// registration the view holds is in the record under one of these names;
// there are no free-floating handles.
type subscriptionName string

const (
	subDirectoryUpdates subscriptionName = "directory-updates"
	subPairMessages     subscriptionName = "pair-messages"
)

// Deps are the collaborators a Controller is built from. In production
// all five interfaces are the chatclient.Client and its Bridge; tests
// pass fakes.
type Deps struct {
	Session  Session
	Users    UserLister
	Messages MessageLoader
	Sender   MessageSender
	Bridge   RealtimeBridge
	Logger   *zap.Logger

	// OnChange is invoked after any state change a renderer would care
	// about: new message admitted, directory entry updated, connection
	// status moved. May be nil. Called without internal locks held.
	OnChange func()
}

// Controller glues the view together: it resolves the session, owns the
// directory and the active conversation store, and is the single owner
// of every live subscription. State machine over the selected
// counterpart: Idle (directory only) or Active (history + live feed).
type Controller struct {
	mu sync.Mutex

	session  Session
	users    UserLister
	messages MessageLoader
	sender   MessageSender
	bridge   RealtimeBridge
	logger   *zap.Logger
	onChange func()

	self      models.User
	directory *Directory
	store     *MessageStore // nil while Idle
	composer  Composer
	status    realtime.Status
	subs      map[subscriptionName]Subscription
	closed    bool
}

func NewController(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		session:  deps.Session,
		users:    deps.Users,
		messages: deps.Messages,
		sender:   deps.Sender,
		bridge:   deps.Bridge,
		logger:   logger,
		onChange: deps.OnChange,
		status:   realtime.StatusConnecting,
		subs:     make(map[subscriptionName]Subscription),
	}
}

// Start resolves the session, bulk-loads the directory, and opens the
// directory-updates subscription. ErrUnauthenticated (or a failed
// directory read) means the view must not render; the caller redirects
// to login.
func (c *Controller) Start(ctx context.Context) error {
	user, err := c.session.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnauthenticated
	}

	directory := NewDirectory(user.ID)
	if err := directory.Load(ctx, c.users); err != nil {
		return err
	}

	c.mu.Lock()
	c.self = *user
	c.directory = directory
	c.mu.Unlock()

	sub, err := c.bridge.Subscribe(ctx, realtime.TableUsers, realtime.KindUpdate,
		func(ev realtime.Event) {
			if directory.Apply(ev) {
				c.notify()
			}
		},
		func(status realtime.Status) {
			c.mu.Lock()
			c.status = status
			c.mu.Unlock()
			c.notify()
		},
	)
	if err != nil {
		return fmt.Errorf("subscribe to user updates: %w", err)
	}

	c.mu.Lock()
	c.release(subDirectoryUpdates)
	c.subs[subDirectoryUpdates] = sub
	closed := c.closed
	c.mu.Unlock()

	// Close raced Start: don't leave a subscription the teardown missed.
	if closed {
		sub.Unsubscribe()
	}
	return nil
}

// Select makes counterpartID the active conversation, in the required
// order: cancel the previous subscription, clear message state, bulk-load
// the new pair's history, then open the new subscription. Selecting
// uuid.Nil is Deselect.
func (c *Controller) Select(ctx context.Context, counterpartID uuid.UUID) error {
	if counterpartID == uuid.Nil {
		c.Deselect()
		return nil
	}

	c.mu.Lock()
	c.release(subPairMessages)
	store := NewMessageStore(c.self.ID, counterpartID)
	c.store = store
	c.mu.Unlock()
	c.notify()

	// History load failure degrades to an empty list: the conversation
	// still opens, live messages still arrive.
	if err := store.Load(ctx, c.messages); err != nil {
		c.logger.Error("failed to load conversation history",
			zap.String("counterpart_id", counterpartID.String()),
			zap.Error(err),
		)
	}

	sub, err := c.bridge.Subscribe(ctx, realtime.TableMessages, realtime.KindInsert,
		func(ev realtime.Event) {
			// The store re-checks the pair predicate, so an event that
			// slips in after a cancel (or for another conversation) is
			// discarded here, not queued.
			c.mu.Lock()
			active := c.store == store
			c.mu.Unlock()
			if active && store.Admit(ev) {
				c.notify()
			}
		},
		nil,
	)
	if err != nil {
		return fmt.Errorf("subscribe to messages: %w", err)
	}

	c.mu.Lock()
	// The selection may have moved again while subscribing. This handle
	// belongs to a stale store; release it instead of recording it.
	if c.store != store || c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	c.subs[subPairMessages] = sub
	c.mu.Unlock()
	c.notify()
	return nil
}

// Deselect returns to Idle: no conversation, no message subscription,
// composer disabled.
func (c *Controller) Deselect() {
	c.mu.Lock()
	c.release(subPairMessages)
	c.store = nil
	c.mu.Unlock()
	c.notify()
}

// Close tears down every owned subscription, unconditionally. The
// primary resource-leak hazard is leaving the view with a live handle;
// after Close the subscribe and unsubscribe counts match.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.release(subPairMessages)
	c.release(subDirectoryUpdates)
	c.store = nil
	c.mu.Unlock()
}

// release is the one teardown routine. Callers hold c.mu.
func (c *Controller) release(name subscriptionName) {
	if sub, ok := c.subs[name]; ok {
		delete(c.subs, name)
		sub.Unsubscribe()
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Submit sends the composer buffer to the active counterpart. A no-op
// while Idle; the composer is disabled without a conversation.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()

	if store == nil {
		return nil
	}
	_, err := c.composer.Submit(ctx, c.sender, store.Counterpart())
	return err
}

// Composer exposes the input buffer to the renderer.
func (c *Controller) Composer() *Composer {
	return &c.composer
}

// Self returns the authenticated identity resolved by Start.
func (c *Controller) Self() models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

// Users returns the directory contents, empty before Start finishes.
func (c *Controller) Users() []models.User {
	c.mu.Lock()
	directory := c.directory
	c.mu.Unlock()

	if directory == nil {
		return nil
	}
	return directory.Users()
}

// Contact looks a directory entry up by ID.
func (c *Controller) Contact(id uuid.UUID) (models.User, bool) {
	c.mu.Lock()
	directory := c.directory
	c.mu.Unlock()

	if directory == nil {
		return models.User{}, false
	}
	return directory.Get(id)
}

// Messages returns the active conversation in display order, nil while
// Idle.
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Messages()
}

// Counterpart returns the selected counterpart, uuid.Nil while Idle.
func (c *Controller) Counterpart() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return uuid.Nil
	}
	return c.store.Counterpart()
}

// Active reports whether a conversation is selected.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store != nil
}

// Status is the connection status of the change feed, surfaced in the
// sidebar ("Connected" vs "Connecting…").
func (c *Controller) Status() realtime.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
