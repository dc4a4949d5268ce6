package service

import (
	"context"
	"time"

	"github.com/Varun5711/tokenqueue/internal/models/token"
	"github.com/Varun5711/tokenqueue/internal/models/user"
	"github.com/stretchr/testify/mock"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) Save(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

type mockTokenRepo struct {
	mock.Mock
}

func (m *mockTokenRepo) Save(ctx context.Context, t *token.Token) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTokenRepo) FindByAccessToken(ctx context.Context, accessToken string) (*token.Token, error) {
	args := m.Called(ctx, accessToken)
	t, _ := args.Get(0).(*token.Token)
	return t, args.Error(1)
}

func (m *mockTokenRepo) Delete(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// plainHasher keeps tests fast; "hash:" + password is the hash.
type plainHasher struct {
	verifyErr error
	verified  int
}

func (h *plainHasher) Hash(password string) (string, error) {
	return "hash:" + password, nil
}

func (h *plainHasher) Verify(password, hash string) (bool, error) {
	h.verified++
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	return hash == "hash:"+password, nil
}

type fixedGenerator struct {
	value string
	err   error
}

func (g fixedGenerator) Generate() (string, error) {
	return g.value, g.err
}

type fixedExpiry struct {
	at time.Time
}

func (e fixedExpiry) ExpiresAt() time.Time {
	return e.at
}
