package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/tokenqueue/internal/bootstrap"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/config"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/messaging"
	"github.com/Varun5711/tokenqueue/internal/redis"
	"github.com/Varun5711/tokenqueue/internal/service"
	"github.com/Varun5711/tokenqueue/internal/storage/migrations"
)

func main() {
	log := logger.New("auth-worker")
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

	if err := dbManager.Migrate(ctx, migrations.ContextAuth); err != nil {
		log.Fatal("Failed to migrate auth schema: %v", err)
	}

	var redisClient *redis.Client
	if bootstrap.NeedsRedis(cfg) {
		redisClient, err = bootstrap.Redis(ctx, cfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	dial, err := bootstrap.Dialer(cfg, redisClient, "auth-worker")
	if err != nil {
		log.Fatal("Failed to configure broker: %v", err)
	}

	tokens, _, err := bootstrap.TokenStore(cfg, dbManager, redisClient)
	if err != nil {
		log.Fatal("Failed to configure token store: %v", err)
	}
	revoke := service.NewRevokeTokenHandler(tokens, log)

	worker := messaging.NewWorker(dial, cfg.Queue.AuthQueue, bootstrap.RetryPolicy(cfg), log)
	worker.Handle(commands.TypeRevokeToken, messaging.Typed(revoke.Handle))

	bootstrap.ServeMetrics(ctx, cfg.Consumer.MetricsAddr, log)

	if err := worker.Run(ctx); err != nil {
		log.Fatal("Worker stopped: %v", err)
	}
	log.Info("Shutting down")
}
