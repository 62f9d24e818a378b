// Package chatview holds the client-side state of the chat UI: the
// contact directory, the per-conversation message store, the composer,
// and the view controller that owns their subscriptions. All I/O is
// behind interfaces; the package itself never touches the network.
package chatview

import (
	"context"
	"errors"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
)

// ErrUnauthenticated means there is no usable session. The caller routes
// to login instead of rendering anything.
var ErrUnauthenticated = errors.New("chatview: no authenticated session")

// EventHandler receives decoded change events for one subscription.
type EventHandler func(realtime.Event)

// StatusHandler receives connection-status changes for one subscription.
type StatusHandler func(realtime.Status)

// Subscription is one live event-stream registration. Unsubscribe is
// fire-and-forget: the resource counts as released when it returns, but
// one already-in-flight event may still be delivered afterwards;
// handlers re-check their predicate instead of trusting the cancel.
type Subscription interface {
	Unsubscribe()
}

// RealtimeBridge is the façade over the change-event transport. The only
// contract: deliver events for the (table, kind) scope, as they commit,
// until unsubscribed.
type RealtimeBridge interface {
	Subscribe(ctx context.Context, table realtime.Table, kind realtime.Kind, onEvent EventHandler, onStatus StatusHandler) (Subscription, error)
}

// Session supplies the current authenticated identity.
type Session interface {
	// CurrentUser returns the logged-in user, or ErrUnauthenticated.
	CurrentUser(ctx context.Context) (*models.User, error)
}

// UserLister is the bulk read behind the contact directory.
type UserLister interface {
	// ListUsers returns all known users except the caller.
	ListUsers(ctx context.Context) ([]models.User, error)
}

// MessageLoader is the pair-filtered bulk read behind a conversation.
type MessageLoader interface {
	ListConversation(ctx context.Context, counterpartID uuid.UUID) ([]models.Message, error)
}

// AllMessagesLister is the unfiltered fallback read: fetch everything,
// filter client-side. Prefer MessageLoader; it bounds transferred data.
type AllMessagesLister interface {
	ListAllMessages(ctx context.Context) ([]models.Message, error)
}

// MessageSender issues the insert behind the composer.
type MessageSender interface {
	SendMessage(ctx context.Context, receiverID uuid.UUID, text string) (*models.Message, error)
}
