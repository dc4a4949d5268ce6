package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewAMQPDialer opens a RabbitMQ connection with a confirm-mode channel.
func NewAMQPDialer(url string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		deadline := 10 * time.Second
		if d, ok := ctx.Deadline(); ok {
			deadline = time.Until(d)
		}

		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(deadline),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to open channel: %w", err)
		}

		if err := ch.Confirm(false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
		}

		return &amqpConn{conn: conn, ch: ch}, nil
	}
}

type amqpConn struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *amqpConn) DeclareQueue(ctx context.Context, queue string) error {
	_, err := c.ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// Publish waits for the broker's confirm before returning.
func (c *amqpConn) Publish(ctx context.Context, queue string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	confirm, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for confirm on %s: %w", queue, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked message on %s", queue)
	}
	return nil
}

func (c *amqpConn) SetPrefetch(n int) error {
	if err := c.ch.Qos(n, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	return nil
}

func (c *amqpConn) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	msgs, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}

				msg := m
				d := NewDelivery(
					strconv.FormatUint(msg.DeliveryTag, 10),
					msg.Body,
					func(context.Context) error { return msg.Ack(false) },
					func(context.Context) error { return msg.Reject(false) },
				)

				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *amqpConn) Close() error {
	c.closeOnce.Do(func() {
		chErr := c.ch.Close()
		connErr := c.conn.Close()
		if errors.Is(chErr, amqp.ErrClosed) {
			chErr = nil
		}
		if errors.Is(connErr, amqp.ErrClosed) {
			connErr = nil
		}
		c.closeErr = errors.Join(chErr, connErr)
	})
	return c.closeErr
}
