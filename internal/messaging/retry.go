package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/logger"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 5 * time.Second
)

// RetryPolicy is a fixed attempt count with a fixed delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep waits for d or until ctx is done. Tests swap it for a fake.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
		Sleep:       SleepContext,
	}
}

func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Connect dials until it succeeds or the policy is exhausted. Exhaustion is
// a FatalStartup error; cancellation returns ctx.Err().
func Connect(ctx context.Context, dial Dialer, policy RetryPolicy, log *logger.Logger) (Conn, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := dial(ctx)
		connectAttempts.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
		if err == nil {
			if attempt > 1 {
				log.Info("Connected to broker on attempt %d", attempt)
			}
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		log.Warn("Broker connection attempt %d/%d failed: %v", attempt, attempts, err)

		if attempt == attempts {
			break
		}
		if err := sleep(ctx, policy.Delay); err != nil {
			return nil, err
		}
	}

	return nil, apperr.NewFatalStartup(
		"connect to broker",
		fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr),
	)
}
