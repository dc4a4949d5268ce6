package service

import (
	"context"
	"errors"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/lock"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/storage"
)

type Locker interface {
	WithLock(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenReaper deletes expired tokens. With a Locker, concurrent reapers
// skip the sweep while another instance holds the lock.
type TokenReaper struct {
	store storage.ExpiredTokenReaper
	lock  Locker
	log   *logger.Logger
	now   func() time.Time
}

func NewTokenReaper(store storage.ExpiredTokenReaper, lock Locker, log *logger.Logger) *TokenReaper {
	return &TokenReaper{store: store, lock: lock, log: log, now: time.Now}
}

func (r *TokenReaper) Sweep(ctx context.Context) (int64, error) {
	var deleted int64
	sweep := func(ctx context.Context) error {
		n, err := r.store.DeleteExpired(ctx, r.now().UTC())
		if err != nil {
			return apperr.NewInfrastructure("delete expired tokens", err)
		}
		deleted = n
		return nil
	}

	if r.lock == nil {
		err := sweep(ctx)
		return deleted, err
	}

	err := r.lock.WithLock(ctx, sweep)
	if errors.Is(err, lock.ErrLockNotAcquired) {
		r.log.Info("Another reaper holds the lock, skipping sweep")
		return 0, nil
	}
	return deleted, err
}

// Run sweeps immediately and then on every tick until ctx is done.
func (r *TokenReaper) Run(ctx context.Context, interval time.Duration) {
	r.sweepAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepAndLog(ctx)
		}
	}
}

func (r *TokenReaper) sweepAndLog(ctx context.Context) {
	start := time.Now()
	n, err := r.Sweep(ctx)
	if err != nil {
		r.log.Error("Failed to delete expired tokens: %v", err)
		return
	}
	if n > 0 {
		r.log.Info("Deleted %d expired tokens in %v", n, time.Since(start))
	} else {
		r.log.Debug("No expired tokens found")
	}
}
