package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/tokenqueue/internal/models/token"
)

type PostgresTokenStorage struct {
	db DBTX
}

func NewPostgresTokenStorage(db DBTX) *PostgresTokenStorage {
	return &PostgresTokenStorage{db: db}
}

func (s *PostgresTokenStorage) Save(ctx context.Context, t *token.Token) error {
	query := `
		INSERT INTO tokens (id, user_id, access_token, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, t.ID, t.UserID, t.AccessToken, t.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *PostgresTokenStorage) FindByAccessToken(ctx context.Context, accessToken string) (*token.Token, error) {
	query := `
		SELECT id, user_id, access_token, expires_at
		FROM tokens
		WHERE access_token = $1
	`

	var (
		id, userID, access string
		expiresAt          time.Time
	)
	err := s.db.QueryRowContext(ctx, query, accessToken).Scan(&id, &userID, &access, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}

	return token.Restore(id, userID, access, expiresAt), nil
}

func (s *PostgresTokenStorage) Delete(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, tokenID)
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresTokenStorage) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}
