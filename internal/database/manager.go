package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// DBManager owns the primary pool and any read replicas. Each pool is also
// exposed as a *sql.DB so repositories and goose can share it.
type DBManager struct {
	primary      *pgxpool.Pool
	replicas     []*pgxpool.Pool
	primaryDB    *sql.DB
	replicaDBs   []*sql.DB
	replicaIndex uint32
}

type Config struct {
	PrimaryDSN  string
	ReplicaDSNs []string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func NewDBManager(ctx context.Context, cfg Config) (*DBManager, error) {
	if cfg.PrimaryDSN == "" {
		return nil, fmt.Errorf("primary DSN is required")
	}

	primaryPool, err := openPool(ctx, cfg, cfg.PrimaryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to primary: %w", err)
	}

	replicas := make([]*pgxpool.Pool, 0, len(cfg.ReplicaDSNs))
	for i, dsn := range cfg.ReplicaDSNs {
		if dsn == "" {
			continue
		}

		replicaPool, err := openPool(ctx, cfg, dsn)
		if err != nil {
			primaryPool.Close()
			closeReplicas(replicas)
			return nil, fmt.Errorf("failed to connect to replica %d: %w", i, err)
		}

		replicas = append(replicas, replicaPool)
	}

	m := &DBManager{
		primary:    primaryPool,
		replicas:   replicas,
		primaryDB:  stdlib.OpenDBFromPool(primaryPool),
		replicaDBs: make([]*sql.DB, len(replicas)),
	}
	for i, pool := range replicas {
		m.replicaDBs[i] = stdlib.OpenDBFromPool(pool)
	}

	return m, nil
}

func openPool(ctx context.Context, cfg Config, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return pool, nil
}

// WriteDB returns the primary as a *sql.DB.
func (m *DBManager) WriteDB() *sql.DB {
	return m.primaryDB
}

// ReadDB round-robins across replicas, falling back to the primary.
func (m *DBManager) ReadDB() *sql.DB {
	if len(m.replicaDBs) == 0 {
		return m.primaryDB
	}

	idx := atomic.AddUint32(&m.replicaIndex, 1) % uint32(len(m.replicaDBs))
	return m.replicaDBs[idx]
}

// Ping checks the primary.
func (m *DBManager) Ping(ctx context.Context) error {
	return m.primary.Ping(ctx)
}

func closeReplicas(replicas []*pgxpool.Pool) {
	for _, pool := range replicas {
		if pool != nil {
			pool.Close()
		}
	}
}

func (m *DBManager) Close() {
	if m.primaryDB != nil {
		m.primaryDB.Close()
	}
	for _, db := range m.replicaDBs {
		db.Close()
	}
	if m.primary != nil {
		m.primary.Close()
	}
	closeReplicas(m.replicas)
}
