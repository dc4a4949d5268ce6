package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/messaging"
	"github.com/Varun5711/tokenqueue/internal/messaging/messagingtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSleeper struct {
	calls []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.calls = append(f.calls, d)
	return ctx.Err()
}

func TestConnect_SucceedsAfterFailures(t *testing.T) {
	broker := messagingtest.NewMemoryBroker()
	broker.FailDials(2, errors.New("connection refused"))
	sleeper := &fakeSleeper{}

	policy := messaging.RetryPolicy{MaxAttempts: 5, Delay: 5 * time.Second, Sleep: sleeper.Sleep}
	conn, err := messaging.Connect(context.Background(), broker.Dial, policy, logger.NewNop())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.calls)
}

func TestConnect_ExhaustionIsFatal(t *testing.T) {
	cause := errors.New("connection refused")
	attempts := 0
	dial := func(ctx context.Context) (messaging.Conn, error) {
		attempts++
		return nil, cause
	}
	sleeper := &fakeSleeper{}

	policy := messaging.RetryPolicy{MaxAttempts: 5, Delay: time.Second, Sleep: sleeper.Sleep}
	_, err := messaging.Connect(context.Background(), dial, policy, logger.NewNop())

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.FatalStartup))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 5, attempts)
	assert.Len(t, sleeper.calls, 4, "no sleep after the last attempt")
}

func TestConnect_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	dial := func(context.Context) (messaging.Conn, error) {
		attempts++
		cancel()
		return nil, errors.New("connection refused")
	}

	policy := messaging.RetryPolicy{MaxAttempts: 5, Delay: time.Hour, Sleep: messaging.SleepContext}
	_, err := messaging.Connect(ctx, dial, policy, logger.NewNop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := messaging.DefaultRetryPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.Delay)
	assert.NotNil(t, p.Sleep)
}
