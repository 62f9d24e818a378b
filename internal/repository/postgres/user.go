package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, email, name, avatar_url, is_online, password_hash, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.IsOnline,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row. Postgres generates the UUID and timestamp.
// New accounts start online; signup is a live session.
func (s *UserStore) Create(ctx context.Context, email, name, avatarURL, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (email, name, avatar_url, is_online, password_hash, created_at)
		VALUES ($1, $2, $3, true, $4, now())
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, email, name, avatarURL, passwordHash))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListOthers returns every user except selfID; the contact sidebar never
// shows the viewer their own entry.
func (s *UserStore) ListOthers(ctx context.Context, selfID uuid.UUID) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id <> $1
		ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, selfID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpsertProfile writes the profile fields keyed on the primary key.
// ON CONFLICT DO UPDATE makes the call idempotent: re-submitting the same
// profile is a no-op, and a row that already exists keeps its password
// hash and created_at untouched.
func (s *UserStore) UpsertProfile(ctx context.Context, user models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, name, avatar_url, is_online, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, '', now())
		ON CONFLICT (id) DO UPDATE SET
			email      = EXCLUDED.email,
			name       = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			is_online  = EXCLUDED.is_online
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.AvatarURL, user.IsOnline))
	if err != nil {
		return nil, fmt.Errorf("upsert user profile: %w", err)
	}
	return u, nil
}
