package chatview

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
)

// MessageStore holds the ordered messages of one conversation: seeded by
// one bulk load, appended to by qualifying live insert events. A store is
// bound to its (self, counterpart) pair for life; switching counterpart
// means a new store, never a mutation.
type MessageStore struct {
	mu            sync.RWMutex
	selfID        uuid.UUID
	counterpartID uuid.UUID
	messages      []models.Message
	seen          map[int64]struct{}
}

func NewMessageStore(selfID, counterpartID uuid.UUID) *MessageStore {
	return &MessageStore{
		selfID:        selfID,
		counterpartID: counterpartID,
		seen:          make(map[int64]struct{}),
	}
}

// Qualifies reports whether a message belongs to the conversation between
// self and counterpart: the pair must match in either direction.
func Qualifies(m models.Message, selfID, counterpartID uuid.UUID) bool {
	return (m.SenderID == selfID && m.ReceiverID == counterpartID) ||
		(m.SenderID == counterpartID && m.ReceiverID == selfID)
}

// FilterConversation keeps only the messages qualifying for the pair,
// preserving input order. This is the client-side half of the fetch-all
// fallback strategy; the predicate is the same one Admit enforces.
func FilterConversation(all []models.Message, selfID, counterpartID uuid.UUID) []models.Message {
	out := make([]models.Message, 0)
	for _, m := range all {
		if Qualifies(m, selfID, counterpartID) {
			out = append(out, m)
		}
	}
	return out
}

// Load seeds the store from the pair-filtered bulk read. Ordering is
// ascending by creation timestamp; messages sharing a timestamp keep the
// arrival order of the read (stable sort, never re-sorted afterwards).
func (s *MessageStore) Load(ctx context.Context, loader MessageLoader) error {
	fetched, err := loader.ListConversation(ctx, s.counterpartID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	s.seed(fetched)
	return nil
}

// LoadAll seeds the store from an unfiltered read, applying the pair
// predicate client-side. Fallback strategy; prefer Load.
func (s *MessageStore) LoadAll(ctx context.Context, lister AllMessagesLister) error {
	fetched, err := lister.ListAllMessages(ctx)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	s.seed(FilterConversation(fetched, s.selfID, s.counterpartID))
	return nil
}

func (s *MessageStore) seed(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = msgs
	s.seen = make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		s.seen[m.ID] = struct{}{}
	}
}

// Admit offers a live change event to the store. A message-insert event
// qualifying for this store's pair is appended in arrival order; anything
// else is discarded, not queued. The message ID is authoritative for
// dedup: the transport promises exactly-once, but a just-cancelled
// subscription may still hand over one in-flight event, and a redelivery
// must not duplicate a row. Returns true if the message was appended.
func (s *MessageStore) Admit(ev realtime.Event) bool {
	if ev.Table != realtime.TableMessages || ev.Kind != realtime.KindInsert || ev.Message == nil {
		return false
	}
	msg := *ev.Message
	if !Qualifies(msg, s.selfID, s.counterpartID) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[msg.ID]; dup {
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
	return true
}

// Messages returns a copy of the conversation in display order.
func (s *MessageStore) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Counterpart returns the pair member this store is bound to.
func (s *MessageStore) Counterpart() uuid.UUID {
	return s.counterpartID
}
