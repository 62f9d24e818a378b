package postgres

import (
	"context"
	"fmt"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Create(ctx context.Context, senderID, receiverID uuid.UUID, text string) (*models.Message, error) {
	// Messages use bigserial, so we don't pass an ID. Postgres generates
	// it along with created_at; RETURNING gives both back.
	query := `
		INSERT INTO messages (sender_id, receiver_id, text, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, sender_id, receiver_id, text, created_at`

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, senderID, receiverID, text).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Text,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

// ListConversation returns the messages between a and b regardless of
// direction. The OR of the two (sender, receiver) orderings IS the
// conversation; there is no conversation table, the pair is the key.
//
// ORDER BY created_at, id: ascending display order, with the bigserial ID
// breaking ties for two messages committed in the same instant.
func (s *MessageStore) ListConversation(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, text, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Text,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
