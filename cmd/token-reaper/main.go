package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/tokenqueue/internal/bootstrap"
	"github.com/Varun5711/tokenqueue/internal/config"
	"github.com/Varun5711/tokenqueue/internal/lock"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/service"
	"github.com/Varun5711/tokenqueue/internal/storage"
	"github.com/Varun5711/tokenqueue/internal/storage/migrations"
)

func main() {
	log := logger.New("token-reaper")
	defer log.Sync()
	defer log.SetStdLog()()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	if cfg.Auth.TokenStore != config.TokenStorePostgres {
		log.Info("Token store %q expires tokens itself, nothing to reap", cfg.Auth.TokenStore)
		return
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

	redisClient, err := bootstrap.Redis(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	reaper := service.NewTokenReaper(
		storage.NewPostgresTokenStorage(dbManager.WriteDB()),
		lock.NewDistributedLock(redisClient.Raw(), "lock:token-reaper", cfg.Reaper.LockTTL),
		log,
	)

	log.Info("Token reaper started, sweeping every %v", cfg.Reaper.Interval)
	reaper.Run(ctx, cfg.Reaper.Interval)
	log.Info("Shutting down")
}
