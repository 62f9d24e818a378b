package repository

import (
	"context"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/google/uuid"
)

// Every method takes context.Context first: repositories do network I/O,
// and a cancelled request should cancel its queries too.

// UserRepository handles account rows.
type UserRepository interface {
	// Create inserts a new user and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, email, name, avatarURL, passwordHash string) (*models.User, error)

	// GetByID returns a single user. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail looks a user up for login. Returns nil, nil if not found.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// ListOthers returns every user except the given one, oldest account
	// first. Returns empty slice (not nil) so JSON serializes to [] not null.
	ListOthers(ctx context.Context, selfID uuid.UUID) ([]models.User, error)

	// UpsertProfile writes the profile fields (email, name, avatar_url,
	// is_online) keyed on the user ID, inserting the row if it doesn't
	// exist yet. Password hash and created_at are never touched.
	UpsertProfile(ctx context.Context, user models.User) (*models.User, error)
}

// MessageRepository handles direct-message persistence.
type MessageRepository interface {
	// Create persists a message and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, senderID, receiverID uuid.UUID, text string) (*models.Message, error)

	// ListConversation returns all messages exchanged between the two
	// users, in either direction, ascending by creation time with the ID
	// breaking ties. The pair filter is pushed into the query; the
	// transferred data is bounded by the conversation, not the table.
	ListConversation(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)
}
