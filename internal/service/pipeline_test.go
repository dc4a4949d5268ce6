package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Varun5711/tokenqueue/internal/auth"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/messaging"
	"github.com/Varun5711/tokenqueue/internal/messaging/messagingtest"
	"github.com/Varun5711/tokenqueue/internal/service"
	"github.com/Varun5711/tokenqueue/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPipeline_CreateUserThenLoginThenValidate(t *testing.T) {
	log := logger.NewNop()
	broker := messagingtest.NewMemoryBroker()
	users := storage.NewMemoryUserStorage()
	tokens := storage.NewMemoryTokenStorage()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	createUser := service.NewCreateUserHandler(users, hasher, log)
	worker := messaging.NewWorker(broker.Dial, "users_commands", messaging.DefaultRetryPolicy(), log)
	worker.Handle(commands.TypeCreateUser, messaging.Typed(func(ctx context.Context, cmd commands.CreateUserCommand) error {
		_, err := createUser.Handle(ctx, cmd)
		return err
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	pub := messaging.NewPublisher(broker.Dial, "users_commands", log)
	defer pub.Close()
	require.NoError(t, pub.Publish(ctx, commands.TypeCreateUser, map[string]string{
		"name":     "Ana",
		"email":    "Ana@Example.com",
		"password": "secret123",
	}))

	require.Eventually(t, func() bool { return len(broker.Acked()) == 1 }, 2*time.Second, 10*time.Millisecond)

	created, err := users.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "ana@example.com", created.Email)

	login := service.NewLoginHandler(users, tokens, hasher, auth.NewTokenGenerator(), auth.NewExpiryCalculator(time.Hour), log)
	accessToken, err := login.Handle(ctx, commands.LoginCommand{Email: "Ana@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)

	validation, err := service.NewValidateTokenHandler(tokens).Handle(ctx, accessToken)
	require.NoError(t, err)
	require.NotNil(t, validation)
	assert.True(t, validation.IsValid)
	assert.Equal(t, created.ID, validation.UserID)

	cancel()
	require.NoError(t, <-done)
}

func TestPipeline_RedeliveredCreateUserIsIdempotent(t *testing.T) {
	log := logger.NewNop()
	broker := messagingtest.NewMemoryBroker()
	users := storage.NewMemoryUserStorage()
	createUser := service.NewCreateUserHandler(users, auth.NewBcryptHasher(bcrypt.MinCost), log)

	worker := messaging.NewWorker(broker.Dial, "users_commands", messaging.DefaultRetryPolicy(), log)
	worker.Handle(commands.TypeCreateUser, messaging.Typed(func(ctx context.Context, cmd commands.CreateUserCommand) error {
		_, err := createUser.Handle(ctx, cmd)
		return err
	}))

	body, err := commands.Encode(commands.TypeCreateUser, commands.CreateUserCommand{
		ID: "3f6c8a1e-0000-4000-8000-000000000001", Name: "Ana", Email: "ana@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	broker.Enqueue("users_commands", body)
	broker.Enqueue("users_commands", body)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	require.Eventually(t, func() bool { return len(broker.Acked()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, users.Len())
	assert.Empty(t, broker.Rejected())
}
