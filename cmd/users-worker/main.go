package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/tokenqueue/internal/auth"
	"github.com/Varun5711/tokenqueue/internal/bootstrap"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/config"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/messaging"
	"github.com/Varun5711/tokenqueue/internal/redis"
	"github.com/Varun5711/tokenqueue/internal/service"
	"github.com/Varun5711/tokenqueue/internal/storage"
	"github.com/Varun5711/tokenqueue/internal/storage/migrations"
)

func main() {
	log := logger.New("users-worker")
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

	if err := dbManager.Migrate(ctx, migrations.ContextUsers); err != nil {
		log.Fatal("Failed to migrate users schema: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Queue.Backend == config.QueueBackendRedis {
		redisClient, err = bootstrap.Redis(ctx, cfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	dial, err := bootstrap.Dialer(cfg, redisClient, "users-worker")
	if err != nil {
		log.Fatal("Failed to configure broker: %v", err)
	}

	users := storage.NewPostgresUserStorage(dbManager.WriteDB(), dbManager.ReadDB())
	createUser := service.NewCreateUserHandler(users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), log)

	worker := messaging.NewWorker(dial, cfg.Queue.UsersQueue, bootstrap.RetryPolicy(cfg), log)
	worker.Handle(commands.TypeCreateUser, messaging.Typed(func(ctx context.Context, cmd commands.CreateUserCommand) error {
		_, err := createUser.Handle(ctx, cmd)
		return err
	}))

	bootstrap.ServeMetrics(ctx, cfg.Consumer.MetricsAddr, log)

	if err := worker.Run(ctx); err != nil {
		log.Fatal("Worker stopped: %v", err)
	}
	log.Info("Shutting down")
}
