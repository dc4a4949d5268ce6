package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
)

// Publisher sends command envelopes to one durable queue. It dials on first
// use and keeps the connection until a send fails or Close is called. It is
// safe for concurrent use.
type Publisher struct {
	dial  Dialer
	queue string
	log   *logger.Logger

	mu       sync.Mutex
	conn     Conn
	declared bool
}

func NewPublisher(dial Dialer, queue string, log *logger.Logger) *Publisher {
	return &Publisher{
		dial:  dial,
		queue: queue,
		log:   log,
	}
}

func (p *Publisher) Queue() string {
	return p.queue
}

// Publish encodes payload under cmdType and returns once the broker has
// accepted it. Broker failures are returned as Infrastructure errors without
// retrying; the next call dials again.
func (p *Publisher) Publish(ctx context.Context, cmdType string, payload any) error {
	body, err := commands.Encode(cmdType, payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.send(ctx, body); err != nil {
		p.resetLocked()
		commandsPublished.WithLabelValues(p.queue, resultFailed).Inc()
		p.log.Error("Failed to publish %s to %s: %v", cmdType, p.queue, err)
		return apperr.NewInfrastructure("publish "+cmdType, err)
	}

	commandsPublished.WithLabelValues(p.queue, resultOK).Inc()
	p.log.Debug("Published %s to %s", cmdType, p.queue)
	return nil
}

func (p *Publisher) send(ctx context.Context, body []byte) error {
	if p.conn == nil {
		conn, err := p.dial(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		p.conn = conn
		p.declared = false
	}

	if !p.declared {
		if err := p.conn.DeclareQueue(ctx, p.queue); err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		p.declared = true
	}

	return p.conn.Publish(ctx, p.queue, body)
}

func (p *Publisher) resetLocked() {
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.log.Debug("Closing broken connection: %v", err)
		}
	}
	p.conn = nil
	p.declared = false
}

// Close releases the connection. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}

	err := p.conn.Close()
	p.conn = nil
	p.declared = false
	return err
}
