// Package bootstrap builds the shared infrastructure the binaries need from
// a loaded config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Varun5711/tokenqueue/internal/config"
	"github.com/Varun5711/tokenqueue/internal/database"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/messaging"
	"github.com/Varun5711/tokenqueue/internal/redis"
	"github.com/Varun5711/tokenqueue/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Database(ctx context.Context, cfg *config.Config) (*database.DBManager, error) {
	return database.NewDBManager(ctx, database.Config{
		PrimaryDSN:      cfg.Database.PrimaryDSN,
		ReplicaDSNs:     cfg.Database.ReplicaDSNs,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
}

func Redis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return redis.NewClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NeedsRedis reports whether the queue backend or the token store is Redis.
func NeedsRedis(cfg *config.Config) bool {
	return cfg.Queue.Backend == config.QueueBackendRedis || cfg.Auth.TokenStore == config.TokenStoreRedis
}

// Dialer picks the broker transport. rdb may be nil unless the backend is
// Redis.
func Dialer(cfg *config.Config, rdb *redis.Client, service string) (messaging.Dialer, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendAMQP:
		return messaging.NewAMQPDialer(cfg.AMQP.URL), nil
	case config.QueueBackendRedis:
		if rdb == nil {
			return nil, errors.New("redis queue backend needs a Redis client")
		}
		return messaging.NewRedisStreamDialer(rdb.Raw(), messaging.RedisStreamOptions{
			Group:        cfg.Queue.ConsumerGroup,
			Consumer:     consumerName(cfg, service),
			Block:        cfg.Queue.BlockTime,
			ClaimMinIdle: cfg.Queue.ClaimMinIdle,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Queue.Backend)
	}
}

func consumerName(cfg *config.Config, service string) string {
	if cfg.Queue.ConsumerName != "" {
		return cfg.Queue.ConsumerName
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return service
	}
	return service + "-" + host
}

func RetryPolicy(cfg *config.Config) messaging.RetryPolicy {
	policy := messaging.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Consumer.MaxRetries
	policy.Delay = cfg.Consumer.RetryDelay()
	return policy
}

// TokenStore returns the configured token repository. Only the Postgres
// store needs a reaper; Redis keys expire on their own.
func TokenStore(cfg *config.Config, db *database.DBManager, rdb *redis.Client) (storage.TokenRepository, storage.ExpiredTokenReaper, error) {
	switch cfg.Auth.TokenStore {
	case config.TokenStoreRedis:
		if rdb == nil {
			return nil, nil, errors.New("redis token store needs a Redis client")
		}
		return storage.NewRedisTokenStorage(rdb.Raw()), nil, nil
	case config.TokenStorePostgres:
		store := storage.NewPostgresTokenStorage(db.WriteDB())
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported token store %q", cfg.Auth.TokenStore)
	}
}

// ServeMetrics exposes /metrics on addr until ctx is done. An empty addr
// disables it.
func ServeMetrics(ctx context.Context, addr string, log *logger.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("Metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server error: %v", err)
		}
	}()
}
