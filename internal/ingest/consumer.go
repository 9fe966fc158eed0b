package ingest

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listing-aggregator/internal/config"
	"github.com/sells-group/listing-aggregator/internal/resilience"
)

// Handler processes one raw message payload.
type Handler interface {
	Process(ctx context.Context, payload []byte) error
}

// Consumer reads from the durable intake queue with manual acknowledgement.
// Each worker holds its own channel with a prefetch of one, so in-flight
// concurrency equals the worker count.
type Consumer struct {
	cfg     config.QueueConfig
	handler Handler
	workers int
}

// NewConsumer creates a Consumer with the given parallelism.
func NewConsumer(cfg config.QueueConfig, handler Handler, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{cfg: cfg, handler: handler, workers: workers}
}

// Run consumes until ctx is canceled. Connection loss triggers a reconnect
// with backoff; cancellation lets each worker finish its current message
// before returning.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return eris.Wrap(err, "ingest: connect")
		}

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			zap.L().Warn("consumer session ended, reconnecting", zap.Error(err))
		}
	}
}

func (c *Consumer) connect(ctx context.Context) (*amqp.Connection, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.OnRetry = resilience.RetryLogger("amqp", "dial")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*amqp.Connection, error) {
		return amqp.Dial(c.cfg.URL)
	})
}

// consume runs one worker group against a live connection. It returns when
// the connection dies or ctx is canceled.
func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		worker := i
		g.Go(func() error {
			return c.runWorker(ctx, conn, worker)
		})
	}
	return g.Wait()
}

func (c *Consumer) runWorker(ctx context.Context, conn *amqp.Connection, worker int) error {
	ch, err := conn.Channel()
	if err != nil {
		return eris.Wrap(err, "ingest: open channel")
	}
	defer ch.Close() //nolint:errcheck

	if _, err := ch.QueueDeclare(c.cfg.Name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return eris.Wrapf(err, "ingest: declare queue %s", c.cfg.Name)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return eris.Wrap(err, "ingest: set qos")
	}

	deliveries, err := ch.Consume(c.cfg.Name,
		"", // consumer tag
		false, false, false, false, nil,
	)
	if err != nil {
		return eris.Wrap(err, "ingest: start consume")
	}

	zap.L().Info("worker consuming",
		zap.Int("worker", worker),
		zap.String("queue", c.cfg.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return eris.New("ingest: delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// inFlightTimeout bounds how long an accepted delivery may keep running
// after the consumer is asked to stop.
const inFlightTimeout = 30 * time.Second

// handleDelivery completes the message before honoring cancellation: ack on
// success, nack without requeue on any failure. Processing runs detached
// from the worker's cancellation so a shutdown mid-message does not turn a
// good listing into a dropped nack.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inFlightTimeout)
	defer cancel()

	if err := c.handler.Process(ctx, d.Body); err != nil {
		zap.L().Error("message processing failed",
			zap.Error(err),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)
		if nackErr := d.Nack(false, false); nackErr != nil {
			zap.L().Error("nack failed", zap.Error(nackErr))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		zap.L().Error("ack failed", zap.Error(err))
	}
}
