// Package messaging moves command envelopes between the publishing side and
// the queue workers. Broker specifics live behind Conn so the publisher and
// worker run unchanged on Redis Streams, RabbitMQ or the in-memory broker.
package messaging

import (
	"context"
	"errors"
	"sync"
)

// Conn is one broker connection. Queues are durable and deliveries must be
// settled explicitly.
type Conn interface {
	DeclareQueue(ctx context.Context, queue string) error
	Publish(ctx context.Context, queue string, body []byte) error
	SetPrefetch(n int) error
	// Consume streams deliveries until ctx is done or the connection is
	// lost, then closes the channel.
	Consume(ctx context.Context, queue string) (<-chan Delivery, error)
	Close() error
}

type Dialer func(ctx context.Context) (Conn, error)

var ErrConnClosed = errors.New("connection closed")

// Delivery is a received message awaiting settlement. Reject never
// requeues.
type Delivery struct {
	ID   string
	Body []byte

	settle *settler
}

type settler struct {
	once   sync.Once
	ack    func(ctx context.Context) error
	reject func(ctx context.Context) error
}

func NewDelivery(id string, body []byte, ack, reject func(ctx context.Context) error) Delivery {
	return Delivery{
		ID:     id,
		Body:   body,
		settle: &settler{ack: ack, reject: reject},
	}
}

// Ack settles the delivery as processed. Only the first Ack or Reject takes
// effect.
func (d Delivery) Ack(ctx context.Context) error {
	return d.run(ctx, true)
}

func (d Delivery) Reject(ctx context.Context) error {
	return d.run(ctx, false)
}

func (d Delivery) run(ctx context.Context, ack bool) error {
	if d.settle == nil {
		return nil
	}

	var err error
	d.settle.once.Do(func() {
		fn := d.settle.reject
		if ack {
			fn = d.settle.ack
		}
		if fn != nil {
			err = fn(ctx)
		}
	})
	return err
}
