package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/auth"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/models/user"
	"github.com/Varun5711/tokenqueue/internal/storage"
	"github.com/google/uuid"
)

type CreateUserHandler struct {
	users  storage.UserRepository
	hasher PasswordHasher
	log    *logger.Logger
	newID  func() string
}

func NewCreateUserHandler(users storage.UserRepository, hasher PasswordHasher, log *logger.Logger) *CreateUserHandler {
	return &CreateUserHandler{
		users:  users,
		hasher: hasher,
		log:    log,
		newID:  uuid.NewString,
	}
}

// Handle creates the account described by cmd. When cmd.ID names an account
// that already exists, that account is returned and nothing is written, so a
// redelivered command is harmless.
func (h *CreateUserHandler) Handle(ctx context.Context, cmd commands.CreateUserCommand) (*user.User, error) {
	id := strings.TrimSpace(cmd.ID)
	if id != "" {
		existing, err := h.users.GetByID(ctx, id)
		if err != nil {
			return nil, apperr.NewInfrastructure("get user by id", err)
		}
		if existing != nil {
			h.log.Info("User %s already exists, skipping", id)
			return existing, nil
		}
	} else {
		id = h.newID()
	}

	if strings.TrimSpace(cmd.Name) == "" {
		return nil, apperr.NewValidation("name is required")
	}
	if !user.ValidEmail(cmd.Email) {
		return nil, apperr.NewValidation("invalid email format")
	}
	if cmd.Password == "" {
		return nil, apperr.NewValidation("password is required")
	}
	if len(cmd.Password) > auth.MaxPasswordBytes {
		return nil, apperr.NewValidation("password must be at most 72 bytes")
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, apperr.NewInfrastructure("hash password", err)
	}

	u, err := user.New(id, cmd.Name, cmd.Email, hash)
	if err != nil {
		return nil, err
	}

	if err := h.users.Save(ctx, u); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, apperr.NewValidation("email already registered")
		}
		return nil, apperr.NewInfrastructure("save user", err)
	}

	h.log.Info("Created user %s", u.ID)
	return u, nil
}

type GetUserHandler struct {
	users storage.UserRepository
}

func NewGetUserHandler(users storage.UserRepository) *GetUserHandler {
	return &GetUserHandler{users: users}
}

// Handle returns (nil, nil) when no such user exists.
func (h *GetUserHandler) Handle(ctx context.Context, id string) (*user.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.NewValidation("user id is required")
	}

	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NewInfrastructure("get user by id", err)
	}
	return u, nil
}
