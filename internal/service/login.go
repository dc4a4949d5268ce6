package service

import (
	"context"
	"sync"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/models/token"
	"github.com/Varun5711/tokenqueue/internal/storage"
	"github.com/google/uuid"
)

type LoginHandler struct {
	users  storage.UserRepository
	tokens storage.TokenRepository
	hasher PasswordHasher
	gen    TokenGenerator
	expiry ExpiryCalculator
	log    *logger.Logger
	now    func() time.Time
	newID  func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewLoginHandler(
	users storage.UserRepository,
	tokens storage.TokenRepository,
	hasher PasswordHasher,
	gen TokenGenerator,
	expiry ExpiryCalculator,
	log *logger.Logger,
) *LoginHandler {
	return &LoginHandler{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		gen:    gen,
		expiry: expiry,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Handle checks the credentials and issues a token, returning the raw access
// token. Unknown email and wrong password both yield
// apperr.ErrInvalidCredentials.
func (h *LoginHandler) Handle(ctx context.Context, cmd commands.LoginCommand) (string, error) {
	u, err := h.users.GetByEmail(ctx, cmd.Email)
	if err != nil {
		return "", apperr.NewInfrastructure("get user by email", err)
	}

	if u == nil {
		// Burn a comparison so response time does not reveal the miss.
		_, _ = h.hasher.Verify(cmd.Password, h.dummy())
		return "", apperr.ErrInvalidCredentials
	}

	ok, err := h.hasher.Verify(cmd.Password, u.PasswordHash)
	if err != nil {
		return "", apperr.NewInfrastructure("verify password", err)
	}
	if !ok {
		return "", apperr.ErrInvalidCredentials
	}

	accessToken, err := h.gen.Generate()
	if err != nil {
		return "", apperr.NewInfrastructure("generate token", err)
	}
	if accessToken == "" {
		return "", apperr.NewInfrastructure("generate token", errEmptyToken)
	}

	tok, err := token.New(h.newID(), u.ID, accessToken, h.expiry.ExpiresAt(), h.now())
	if err != nil {
		return "", apperr.NewInfrastructure("build token", err)
	}

	if err := h.tokens.Save(ctx, tok); err != nil {
		return "", apperr.NewInfrastructure("save token", err)
	}

	h.log.Info("Issued token %s for user %s", tok.ID, u.ID)
	return accessToken, nil
}

func (h *LoginHandler) dummy() string {
	h.dummyOnce.Do(func() {
		hash, err := h.hasher.Hash("tokenqueue-dummy-password")
		if err != nil {
			h.log.Warn("Failed to prepare dummy hash: %v", err)
			return
		}
		h.dummyHash = hash
	})
	return h.dummyHash
}
