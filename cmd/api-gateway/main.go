package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Varun5711/tokenqueue/internal/auth"
	"github.com/Varun5711/tokenqueue/internal/bootstrap"
	"github.com/Varun5711/tokenqueue/internal/config"
	"github.com/Varun5711/tokenqueue/internal/handlers"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/messaging"
	"github.com/Varun5711/tokenqueue/internal/middleware"
	"github.com/Varun5711/tokenqueue/internal/redis"
	"github.com/Varun5711/tokenqueue/internal/service"
	"github.com/Varun5711/tokenqueue/internal/storage"
	"github.com/Varun5711/tokenqueue/internal/storage/migrations"
)

func main() {
	log := logger.New("api-gateway")
	defer log.Sync()
	defer log.SetStdLog()()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager, err := bootstrap.Database(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbManager.Close()

	// Login writes tokens here, so the gateway may run before auth-worker.
	if cfg.Auth.TokenStore == config.TokenStorePostgres {
		if err := dbManager.Migrate(ctx, migrations.ContextAuth); err != nil {
			log.Fatal("Failed to migrate auth schema: %v", err)
		}
	}

	var redisClient *redis.Client
	if bootstrap.NeedsRedis(cfg) || cfg.Services.LoginRateLimit > 0 {
		redisClient, err = bootstrap.Redis(ctx, cfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	dial, err := bootstrap.Dialer(cfg, redisClient, "api-gateway")
	if err != nil {
		log.Fatal("Failed to configure broker: %v", err)
	}
	userCommands := messaging.NewPublisher(dial, cfg.Queue.UsersQueue, log)
	defer userCommands.Close()
	authCommands := messaging.NewPublisher(dial, cfg.Queue.AuthQueue, log)
	defer authCommands.Close()

	users := storage.NewPostgresUserStorage(dbManager.WriteDB(), dbManager.ReadDB())
	tokens, _, err := bootstrap.TokenStore(cfg, dbManager, redisClient)
	if err != nil {
		log.Fatal("Failed to configure token store: %v", err)
	}

	login := service.NewLoginHandler(
		users,
		tokens,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewTokenGenerator(),
		auth.NewExpiryCalculator(cfg.Auth.TokenTTL),
		log,
	)
	validate := service.NewValidateTokenHandler(tokens)

	ready := func(ctx context.Context) error {
		if err := dbManager.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	routerCfg := handlers.RouterConfig{
		Auth:        handlers.NewAuthHandler(login, validate, authCommands, cfg.Services.RequestTimeout, log),
		Users:       handlers.NewUserHandler(userCommands, service.NewGetUserHandler(users), cfg.Services.RequestTimeout, log),
		RequireAuth: middleware.NewAuthMiddleware(validate, log).RequireAuth,
		Ready:       ready,
		Log:         log,
	}
	if cfg.Services.LoginRateLimit > 0 {
		limiter := middleware.NewRateLimiter(redisClient.Raw(), cfg.Services.LoginRateLimit, cfg.Services.LoginRateWindow, log)
		routerCfg.LoginLimit = limiter.Middleware
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Services.APIGatewayPort,
		Handler:           handlers.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed: %v", err)
		}
	}()

	log.Info("Listening on :%s", cfg.Services.APIGatewayPort)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server error: %v", err)
	}
	log.Info("Shutting down")
}
