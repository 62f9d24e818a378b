package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/google/uuid"
)

// Table identifies which collection a change event belongs to.
type Table string

const (
	TableUsers    Table = "users"
	TableMessages Table = "messages"
)

// Kind is the change kind of an event.
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
)

// Status reports the state of a subscription's underlying connection.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusSubscribed Status = "subscribed"
	StatusClosed     Status = "closed"
)

// Envelope is the wire form of a change event: the committed row as raw
// JSON, tagged with its table and change kind.
type Envelope struct {
	Table  Table           `json:"table"`
	Type   Kind            `json:"type"`
	Record json.RawMessage `json:"record"`
}

// UserPatch is the payload of a users UPDATE. Pointer fields distinguish
// "absent from the payload" from a genuine zero value, so a consumer can
// merge field-wise and retain whatever the event didn't carry.
type UserPatch struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email"`
	Name      *string   `json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	IsOnline  *bool     `json:"is_online"`
}

// Event is the decoded, validated form of a change event. Exactly one of
// User/Message is set, matching (Table, Kind). Consumers never see a raw
// row; malformed payloads are rejected at decode.
type Event struct {
	Table Table
	Kind  Kind

	User    *UserPatch      // Table=users, Kind=UPDATE
	Message *models.Message // Table=messages, Kind=INSERT
}

// UserUpdated builds the event published after a user row changes.
func UserUpdated(u models.User) Event {
	return Event{
		Table: TableUsers,
		Kind:  KindUpdate,
		User: &UserPatch{
			ID:        u.ID,
			Email:     &u.Email,
			Name:      &u.Name,
			AvatarURL: &u.AvatarURL,
			IsOnline:  &u.IsOnline,
		},
	}
}

// MessageInserted builds the event published after a message commits.
func MessageInserted(m models.Message) Event {
	return Event{
		Table:   TableMessages,
		Kind:    KindInsert,
		Message: &m,
	}
}

// Envelope renders the event into its wire form.
func (e Event) Envelope() (Envelope, error) {
	var record any
	switch {
	case e.Table == TableUsers && e.Kind == KindUpdate && e.User != nil:
		record = e.User
	case e.Table == TableMessages && e.Kind == KindInsert && e.Message != nil:
		record = e.Message
	default:
		return Envelope{}, fmt.Errorf("cannot encode event for %s/%s", e.Table, e.Kind)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal record: %w", err)
	}
	return Envelope{Table: e.Table, Type: e.Kind, Record: data}, nil
}

// DecodeEnvelope validates an envelope and produces the tagged event.
// Unknown (table, kind) combinations and records that don't carry the
// fields the combination requires are errors, never zero-value events.
func DecodeEnvelope(env Envelope) (Event, error) {
	switch {
	case env.Table == TableUsers && env.Type == KindUpdate:
		var patch UserPatch
		if err := json.Unmarshal(env.Record, &patch); err != nil {
			return Event{}, fmt.Errorf("decode user record: %w", err)
		}
		if patch.ID == uuid.Nil {
			return Event{}, fmt.Errorf("user update without id")
		}
		return Event{Table: env.Table, Kind: env.Type, User: &patch}, nil

	case env.Table == TableMessages && env.Type == KindInsert:
		var msg models.Message
		if err := json.Unmarshal(env.Record, &msg); err != nil {
			return Event{}, fmt.Errorf("decode message record: %w", err)
		}
		if msg.ID == 0 || msg.SenderID == uuid.Nil || msg.ReceiverID == uuid.Nil {
			return Event{}, fmt.Errorf("message insert missing id or participants")
		}
		return Event{Table: env.Table, Kind: env.Type, Message: &msg}, nil

	default:
		return Event{}, fmt.Errorf("unsupported change event %s/%s", env.Table, env.Type)
	}
}

// Decode parses and validates a change event from its wire bytes.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	return DecodeEnvelope(env)
}
