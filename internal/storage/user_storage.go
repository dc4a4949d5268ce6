package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Varun5711/tokenqueue/internal/models/user"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresUserStorage struct {
	write DBTX
	read  DBTX
}

// NewPostgresUserStorage takes separate handles for writes and lookups so
// reads can go to a replica. Pass the same handle twice when there is none.
func NewPostgresUserStorage(write, read DBTX) *PostgresUserStorage {
	return &PostgresUserStorage{write: write, read: read}
}

// Save inserts the user. Saving an id that already exists is a no-op so a
// redelivered command does not create a second account.
func (s *PostgresUserStorage) Save(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.write.ExecContext(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (s *PostgresUserStorage) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return s.scanOne(ctx, query, user.NormalizeEmail(email))
}

func (s *PostgresUserStorage) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return s.scanOne(ctx, query, id)
}

func (s *PostgresUserStorage) scanOne(ctx context.Context, query string, arg string) (*user.User, error) {
	var u user.User
	err := s.read.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
