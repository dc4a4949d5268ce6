// Package messagingtest provides an in-process broker for exercising
// publishers and workers without a running Redis or RabbitMQ.
package messagingtest

import (
	"context"
	"strconv"
	"sync"

	"github.com/Varun5711/tokenqueue/internal/messaging"
)

// MemoryBroker is an in-process broker with the same settlement rules as
// the real transports: deliveries left unsettled when a connection closes
// go back to the head of their queue.
type MemoryBroker struct {
	mu       sync.Mutex
	queues   map[string]*memoryQueue
	seq      int
	dialErrs []error
	conns    map[*memoryConn]struct{}
	acked    []string
	rejected []string
}

type memoryQueue struct {
	ready  []memoryMessage
	signal chan struct{}
}

type memoryMessage struct {
	id   string
	body []byte
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		queues: make(map[string]*memoryQueue),
		conns:  make(map[*memoryConn]struct{}),
	}
}

// Dial satisfies messaging.Dialer.
func (b *MemoryBroker) Dial(ctx context.Context) (messaging.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.dialErrs) > 0 {
		err := b.dialErrs[0]
		b.dialErrs = b.dialErrs[1:]
		return nil, err
	}

	c := &memoryConn{
		broker:   b,
		prefetch: 1,
		closed:   make(chan struct{}),
		inflight: make(map[string]inflightMessage),
	}
	b.conns[c] = struct{}{}
	return c, nil
}

// FailDials makes the next n dials return err.
func (b *MemoryBroker) FailDials(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		b.dialErrs = append(b.dialErrs, err)
	}
}

// Enqueue places a raw body on queue, bypassing any connection.
func (b *MemoryBroker) Enqueue(queue string, body []byte) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pushLocked(queue, body)
}

// Sever drops every open connection as a broker restart would.
func (b *MemoryBroker) Sever() {
	b.mu.Lock()
	conns := make([]*memoryConn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (b *MemoryBroker) Pending(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[queue]; ok {
		return len(q.ready)
	}
	return 0
}

func (b *MemoryBroker) Acked() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.acked...)
}

func (b *MemoryBroker) Rejected() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.rejected...)
}

func (b *MemoryBroker) OpenConns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *MemoryBroker) queueLocked(name string) *memoryQueue {
	q, ok := b.queues[name]
	if !ok {
		q = &memoryQueue{signal: make(chan struct{}, 1)}
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBroker) pushLocked(queue string, body []byte) string {
	b.seq++
	id := strconv.Itoa(b.seq)
	q := b.queueLocked(queue)
	q.ready = append(q.ready, memoryMessage{id: id, body: append([]byte(nil), body...)})
	q.notify()
	return id
}

func (q *memoryQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// next blocks until a message is ready or done fires.
func (b *MemoryBroker) next(ctx context.Context, queue string, closed <-chan struct{}) (memoryMessage, bool) {
	for {
		b.mu.Lock()
		q := b.queueLocked(queue)
		if len(q.ready) > 0 {
			msg := q.ready[0]
			q.ready = q.ready[1:]
			if len(q.ready) > 0 {
				q.notify()
			}
			b.mu.Unlock()
			return msg, true
		}
		signal := q.signal
		b.mu.Unlock()

		select {
		case <-signal:
		case <-ctx.Done():
			return memoryMessage{}, false
		case <-closed:
			return memoryMessage{}, false
		}
	}
}

type inflightMessage struct {
	queue string
	msg   memoryMessage
}

type memoryConn struct {
	broker    *MemoryBroker
	closeOnce sync.Once
	closed    chan struct{}

	mu       sync.Mutex
	prefetch int
	inflight map[string]inflightMessage
}

func (c *memoryConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *memoryConn) DeclareQueue(ctx context.Context, queue string) error {
	if c.isClosed() {
		return messaging.ErrConnClosed
	}
	c.broker.mu.Lock()
	c.broker.queueLocked(queue)
	c.broker.mu.Unlock()
	return nil
}

func (c *memoryConn) Publish(ctx context.Context, queue string, body []byte) error {
	if c.isClosed() {
		return messaging.ErrConnClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.broker.Enqueue(queue, body)
	return nil
}

func (c *memoryConn) SetPrefetch(n int) error {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.prefetch = n
	c.mu.Unlock()
	return nil
}

func (c *memoryConn) Consume(ctx context.Context, queue string) (<-chan messaging.Delivery, error) {
	if c.isClosed() {
		return nil, messaging.ErrConnClosed
	}

	c.mu.Lock()
	sem := make(chan struct{}, c.prefetch)
	c.mu.Unlock()

	out := make(chan messaging.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			case <-c.closed:
				return
			}

			msg, ok := c.broker.next(ctx, queue, c.closed)
			if !ok {
				return
			}
			c.track(queue, msg)

			settle := func(ack bool) func(context.Context) error {
				return func(context.Context) error {
					defer func() { <-sem }()
					return c.settle(msg.id, ack)
				}
			}
			d := messaging.NewDelivery(msg.id, msg.body, settle(true), settle(false))

			select {
			case out <- d:
			case <-ctx.Done():
				c.requeue(msg.id)
				return
			case <-c.closed:
				return
			}
		}
	}()

	return out, nil
}

func (c *memoryConn) track(queue string, msg memoryMessage) {
	c.mu.Lock()
	c.inflight[msg.id] = inflightMessage{queue: queue, msg: msg}
	c.mu.Unlock()
}

func (c *memoryConn) settle(id string, ack bool) error {
	if c.isClosed() {
		return messaging.ErrConnClosed
	}

	c.mu.Lock()
	_, ok := c.inflight[id]
	delete(c.inflight, id)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if ack {
		b.acked = append(b.acked, id)
	} else {
		b.rejected = append(b.rejected, id)
	}
	return nil
}

func (c *memoryConn) requeue(id string) {
	c.mu.Lock()
	m, ok := c.inflight[id]
	delete(c.inflight, id)
	c.mu.Unlock()
	if !ok {
		return
	}

	b := c.broker
	b.mu.Lock()
	q := b.queueLocked(m.queue)
	q.ready = append([]memoryMessage{m.msg}, q.ready...)
	q.notify()
	b.mu.Unlock()
}

func (c *memoryConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		pending := c.inflight
		c.inflight = make(map[string]inflightMessage)
		c.mu.Unlock()

		b := c.broker
		b.mu.Lock()
		delete(b.conns, c)
		for _, m := range pending {
			q := b.queueLocked(m.queue)
			q.ready = append([]memoryMessage{m.msg}, q.ready...)
			q.notify()
		}
		b.mu.Unlock()
	})
	return nil
}
