package messaging

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
)

// HandlerFunc processes one decoded envelope. A returned error drops the
// message.
type HandlerFunc func(ctx context.Context, env *commands.Envelope) error

// Typed adapts a handler for a concrete payload type.
func Typed[T any](fn func(ctx context.Context, cmd T) error) HandlerFunc {
	return func(ctx context.Context, env *commands.Envelope) error {
		var cmd T
		if err := commands.DecodeData(env, &cmd); err != nil {
			return err
		}
		return fn(ctx, cmd)
	}
}

var errDeliveriesClosed = errors.New("delivery channel closed by broker")

// Worker consumes one queue and dispatches each envelope by its type. Every
// message is settled exactly once: acked after its handler succeeds,
// rejected without requeue otherwise.
type Worker struct {
	dial     Dialer
	queue    string
	policy   RetryPolicy
	log      *logger.Logger
	prefetch int
	handlers map[string]HandlerFunc
}

func NewWorker(dial Dialer, queue string, policy RetryPolicy, log *logger.Logger) *Worker {
	return &Worker{
		dial:     dial,
		queue:    queue,
		policy:   policy,
		log:      log,
		prefetch: 1,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for cmdType. Registration must happen before Run.
func (w *Worker) Handle(cmdType string, fn HandlerFunc) {
	w.handlers[cmdType] = fn
}

// Run blocks until ctx is cancelled, in which case it returns nil. It returns
// a FatalStartup error when the broker cannot be reached and an
// Infrastructure error when the broker drops the consumer.
func (w *Worker) Run(ctx context.Context) error {
	conn, err := Connect(ctx, w.dial, w.policy, w.log)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			w.log.Warn("Failed to close broker connection: %v", err)
		}
	}()

	if err := conn.DeclareQueue(ctx, w.queue); err != nil {
		return apperr.NewInfrastructure("declare "+w.queue, err)
	}
	if err := conn.SetPrefetch(w.prefetch); err != nil {
		return apperr.NewInfrastructure("set prefetch", err)
	}

	deliveries, err := conn.Consume(ctx, w.queue)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return apperr.NewInfrastructure("consume "+w.queue, err)
	}

	w.log.Info("Consuming from %s", w.queue)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Stopping consumer on %s", w.queue)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					w.log.Info("Stopping consumer on %s", w.queue)
					return nil
				}
				return apperr.NewInfrastructure("consume "+w.queue, errDeliveriesClosed)
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d Delivery) {
	log := w.log.With("queue", w.queue, "delivery_id", d.ID)
	settleCtx := context.WithoutCancel(ctx)

	env, err := commands.Decode(d.Body)
	if err != nil {
		log.Warn("Dropping malformed message: %v", err)
		w.reject(settleCtx, log, d, resultMalformed)
		return
	}

	log = log.With("type", env.Type)

	handler, ok := w.handlers[env.Type]
	if !ok {
		log.Warn("Dropping message with unknown command type %q", env.Type)
		w.reject(settleCtx, log, d, resultUnknown)
		return
	}

	if err := w.invoke(ctx, handler, env); err != nil {
		if ctx.Err() != nil {
			// Shutdown interrupted the handler; the broker redelivers.
			log.Info("Leaving message unsettled after shutdown: %v", err)
			return
		}
		log.Error("Handler failed, dropping message: %v", err)
		w.reject(settleCtx, log, d, resultFailed)
		return
	}

	if err := d.Ack(settleCtx); err != nil {
		log.Error("Failed to ack message: %v", err)
		return
	}
	commandsProcessed.WithLabelValues(w.queue, resultOK).Inc()
	log.Debug("Processed message")
}

func (w *Worker) invoke(ctx context.Context, handler HandlerFunc, env *commands.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Handler panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, env)
}

func (w *Worker) reject(ctx context.Context, log *logger.Logger, d Delivery, result string) {
	if err := d.Reject(ctx); err != nil {
		log.Error("Failed to reject message: %v", err)
	}
	commandsProcessed.WithLabelValues(w.queue, result).Inc()
}
