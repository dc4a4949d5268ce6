package handlers

import (
	"context"

	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/models/user"
	"github.com/Varun5711/tokenqueue/internal/service"
)

type CommandPublisher interface {
	Publish(ctx context.Context, cmdType string, payload any) error
}

type LoginService interface {
	Handle(ctx context.Context, cmd commands.LoginCommand) (string, error)
}

type TokenValidator interface {
	Handle(ctx context.Context, accessToken string) (*service.TokenValidation, error)
}

type UserGetter interface {
	Handle(ctx context.Context, id string) (*user.User, error)
}
