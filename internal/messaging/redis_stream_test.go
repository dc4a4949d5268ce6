package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamConn(t *testing.T) (*miniredis.Miniredis, *redis.Client, Conn) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	dial := NewRedisStreamDialer(client, RedisStreamOptions{
		Group:    "workers",
		Consumer: "worker-1",
		Block:    50 * time.Millisecond,
	})
	conn, err := dial(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return mr, client, conn
}

func TestRedisStream_DeclareIsIdempotent(t *testing.T) {
	_, _, conn := newStreamConn(t)
	ctx := context.Background()

	require.NoError(t, conn.DeclareQueue(ctx, "users_commands"))
	require.NoError(t, conn.DeclareQueue(ctx, "users_commands"))
}

func TestRedisStream_PublishConsumeAck(t *testing.T) {
	_, client, conn := newStreamConn(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, conn.DeclareQueue(ctx, "users_commands"))
	require.NoError(t, conn.Publish(ctx, "users_commands", []byte(`{"type":"CreateUserCommand","data":{}}`)))

	deliveries, err := conn.Consume(ctx, "users_commands")
	require.NoError(t, err)

	var d Delivery
	select {
	case d = <-deliveries:
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}
	assert.JSONEq(t, `{"type":"CreateUserCommand","data":{}}`, string(d.Body))

	pending, err := client.XPending(ctx, "users_commands", "workers").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	require.NoError(t, d.Ack(ctx))

	pending, err = client.XPending(ctx, "users_commands", "workers").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestRedisStream_ClosedConnRefusesPublish(t *testing.T) {
	_, _, conn := newStreamConn(t)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	err := conn.Publish(context.Background(), "users_commands", []byte("{}"))
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestRedisStream_AbandonedEntryIsClaimedByAnotherConsumer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	dialer := func(consumer string) Dialer {
		return NewRedisStreamDialer(client, RedisStreamOptions{
			Group:        "workers",
			Consumer:     consumer,
			Block:        50 * time.Millisecond,
			ClaimMinIdle: 10 * time.Millisecond,
		})
	}
	ctx := context.Background()

	podA, err := dialer("users-worker-podA")(ctx)
	require.NoError(t, err)
	require.NoError(t, podA.DeclareQueue(ctx, "users_commands"))
	require.NoError(t, podA.Publish(ctx, "users_commands", []byte(`{"type":"CreateUserCommand","data":{}}`)))

	ctxA, cancelA := context.WithCancel(ctx)
	deliveriesA, err := podA.Consume(ctxA, "users_commands")
	require.NoError(t, err)

	var taken Delivery
	select {
	case taken = <-deliveriesA:
	case <-time.After(2 * time.Second):
		t.Fatal("podA got no delivery")
	}

	// podA dies without settling.
	cancelA()
	require.NoError(t, podA.Close())
	time.Sleep(30 * time.Millisecond)

	podB, err := dialer("users-worker-podB")(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { podB.Close() })
	require.NoError(t, podB.DeclareQueue(ctx, "users_commands"))

	ctxB, cancelB := context.WithCancel(ctx)
	defer cancelB()
	deliveriesB, err := podB.Consume(ctxB, "users_commands")
	require.NoError(t, err)

	var redelivered Delivery
	select {
	case redelivered = <-deliveriesB:
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned entry was not redelivered to podB")
	}
	assert.Equal(t, taken.ID, redelivered.ID)
	assert.JSONEq(t, `{"type":"CreateUserCommand","data":{}}`, string(redelivered.Body))

	require.NoError(t, redelivered.Ack(ctx))
	pending, err := client.XPending(ctx, "users_commands", "workers").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}
