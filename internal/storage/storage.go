// Package storage holds the persistence ports consumed by the command and
// query handlers, and their Postgres, Redis and in-memory adapters.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Varun5711/tokenqueue/internal/models/token"
	"github.com/Varun5711/tokenqueue/internal/models/user"
)

// ErrEmailTaken is returned by UserRepository.Save when another account
// already owns the email.
var ErrEmailTaken = errors.New("email already registered")

// UserRepository returns (nil, nil) when a user is absent.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Save(ctx context.Context, u *user.User) error
}

// TokenRepository returns (nil, nil) from FindByAccessToken when the token
// is absent.
type TokenRepository interface {
	Save(ctx context.Context, t *token.Token) error
	FindByAccessToken(ctx context.Context, accessToken string) (*token.Token, error)
	Delete(ctx context.Context, tokenID string) (bool, error)
}

// ExpiredTokenReaper removes tokens whose expiry is at or before now.
type ExpiredTokenReaper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
