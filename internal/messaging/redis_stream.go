package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const streamBodyField = "body"

type RedisStreamOptions struct {
	Group    string
	Consumer string
	// Block bounds each XREADGROUP wait so cancellation is noticed.
	Block time.Duration
	// ClaimMinIdle is how long an entry must sit unacknowledged in another
	// consumer's pending list before this consumer takes it over.
	ClaimMinIdle time.Duration
}

// NewRedisStreamDialer maps queues onto Redis streams read through a
// consumer group. The client is shared and is not closed by Conn.Close.
func NewRedisStreamDialer(client redis.UniversalClient, opts RedisStreamOptions) Dialer {
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.ClaimMinIdle <= 0 {
		opts.ClaimMinIdle = time.Minute
	}

	return func(ctx context.Context) (Conn, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach Redis: %w", err)
		}
		return &redisStreamConn{
			client:   client,
			opts:     opts,
			prefetch: 1,
			closed:   make(chan struct{}),
		}, nil
	}
}

type redisStreamConn struct {
	client    redis.UniversalClient
	opts      RedisStreamOptions
	closeOnce sync.Once
	closed    chan struct{}

	mu       sync.Mutex
	prefetch int
}

func (c *redisStreamConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *redisStreamConn) DeclareQueue(ctx context.Context, queue string) error {
	if c.isClosed() {
		return ErrConnClosed
	}

	err := c.client.XGroupCreateMkStream(ctx, queue, c.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", c.opts.Group, queue, err)
	}
	return nil
}

func (c *redisStreamConn) Publish(ctx context.Context, queue string, body []byte) error {
	if c.isClosed() {
		return ErrConnClosed
	}

	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: queue,
		Values: map[string]interface{}{streamBodyField: string(body)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", queue, err)
	}
	return nil
}

func (c *redisStreamConn) SetPrefetch(n int) error {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.prefetch = n
	c.mu.Unlock()
	return nil
}

type readPhase int

const (
	phaseOwnPending readPhase = iota
	phaseClaim
	phaseNew
)

// Consume first replays entries already delivered to this consumer but never
// acknowledged, then takes over entries other consumers left idle for
// ClaimMinIdle, then reads new ones. Every idle wait for new entries is
// followed by another claim pass, so a dead consumer's work is picked up by
// whoever is still running.
func (c *redisStreamConn) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	if c.isClosed() {
		return nil, ErrConnClosed
	}

	c.mu.Lock()
	sem := make(chan struct{}, c.prefetch)
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-c.closed:
		case <-ctx.Done():
		}
		cancel()
	}()

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer cancel()

		phase := phaseOwnPending
		cursor := "0"
		claimStart := "0-0"
		for {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			var (
				msg redis.XMessage
				ok  bool
				err error
			)
			switch phase {
			case phaseOwnPending:
				msg, ok, err = c.read(ctx, queue, cursor)
				if ok {
					cursor = msg.ID
				} else {
					phase = phaseClaim
				}
			case phaseClaim:
				var next string
				msg, next, ok, err = c.claim(ctx, queue, claimStart)
				claimStart = next
				if !ok && next == "0-0" {
					phase = phaseNew
				}
			default:
				msg, ok, err = c.read(ctx, queue, ">")
				if err == nil && !ok {
					phase, claimStart = phaseClaim, "0-0"
				}
			}

			if err != nil {
				<-sem
				return
			}
			if !ok {
				<-sem
				continue
			}

			d := c.delivery(queue, msg, sem)
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// claim moves at most one idle entry from another consumer to this one. It
// returns the cursor for the next pass; "0-0" means the scan is complete.
func (c *redisStreamConn) claim(ctx context.Context, queue, start string) (redis.XMessage, string, bool, error) {
	msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   queue,
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		MinIdle:  c.opts.ClaimMinIdle,
		Start:    start,
		Count:    1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) && ctx.Err() == nil {
			return redis.XMessage{}, "0-0", false, nil
		}
		return redis.XMessage{}, "0-0", false, err
	}
	if next == "" {
		next = "0-0"
	}
	if len(msgs) == 0 {
		return redis.XMessage{}, next, false, nil
	}
	return msgs[0], next, true, nil
}

func (c *redisStreamConn) read(ctx context.Context, queue, cursor string) (redis.XMessage, bool, error) {
	args := &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{queue, cursor},
		Count:    1,
	}
	if cursor == ">" {
		args.Block = c.opts.Block
	}

	streams, err := c.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) && ctx.Err() == nil {
			return redis.XMessage{}, false, nil
		}
		return redis.XMessage{}, false, err
	}

	for _, stream := range streams {
		if len(stream.Messages) > 0 {
			return stream.Messages[0], true, nil
		}
	}
	return redis.XMessage{}, false, nil
}

func (c *redisStreamConn) delivery(queue string, msg redis.XMessage, sem chan struct{}) Delivery {
	// Entries trimmed from the stream come back with no values; they decode
	// as malformed and get acknowledged away.
	var body []byte
	if raw, ok := msg.Values[streamBodyField].(string); ok {
		body = []byte(raw)
	}

	settle := func(ctx context.Context) error {
		defer func() { <-sem }()
		if err := c.client.XAck(ctx, queue, c.opts.Group, msg.ID).Err(); err != nil {
			return fmt.Errorf("failed to ack %s: %w", msg.ID, err)
		}
		return nil
	}

	// A stream has no requeue; rejecting acknowledges without processing.
	return NewDelivery(msg.ID, body, settle, settle)
}

func (c *redisStreamConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}
