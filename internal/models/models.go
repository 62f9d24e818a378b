package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a row in the users table: one account, signed up via the auth
// endpoints and visible to every other account in the contact sidebar.
// uuid.Nil is the "no user" zero value throughout.
//
// PasswordHash never leaves the server; json:"-" keeps it out of every
// API response and realtime payload.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	IsOnline     bool      `json:"is_online"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is what the UI renders for a contact: the name if one was
// given at signup, the email otherwise.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Message is one direct message between exactly two users. IDs come from
// a bigserial sequence, so they are ordered by commit.
//
// CreatedAt is assigned server-side on insert. Within a conversation it is
// monotonically non-decreasing, not strictly increasing: two messages that
// commit in the same instant share a timestamp and the ID breaks the tie.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
