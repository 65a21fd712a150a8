package rabbitmq

import (
	"context"
	"discussion/pkg/events"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventHandler is a function that processes events
type EventHandler func(ctx context.Context, event *events.Event) error

// Consumer reads events off one durable queue
type Consumer struct {
	conn           *amqp.Connection
	channel        *amqp.Channel
	queueName      string
	serviceName    string
	workerPoolSize int
	handleTimeout  time.Duration
}

// ConsumerConfig describes the queue a Consumer binds and how it drains it
type ConsumerConfig struct {
	Exchange       string   // e.g., "discussion.notification"
	QueueName      string   // e.g., "discussion.notification.all.v1"
	RoutingKeys    []string // e.g., ["notification.*.v1"]
	ServiceName    string   // consumer tag
	PrefetchCount  int      // 0 means 10
	WorkerPoolSize int      // deliveries handled concurrently, 0 means 1
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(url string, config ConsumerConfig) (*Consumer, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(format string, err error) (*Consumer, error) {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf(format, err)
	}

	// Set QoS (prefetch count)
	prefetchCount := config.PrefetchCount
	if prefetchCount == 0 {
		prefetchCount = 10
	}
	if err := channel.Qos(prefetchCount, 0, false); err != nil {
		return fail("failed to set QoS: %w", err)
	}

	// Declare exchange
	if err := channel.ExchangeDeclare(config.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("failed to declare exchange: %w", err)
	}

	// Failed deliveries are dead-lettered into <queue>.dlq.
	dlxName := config.Exchange + ".dlx"
	if err := channel.ExchangeDeclare(dlxName, "topic", true, false, false, false, nil); err != nil {
		return fail("failed to declare DLX: %w", err)
	}

	// Main queue dead-letters into the DLX
	queue, err := channel.QueueDeclare(
		config.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-dead-letter-exchange": dlxName},
	)
	if err != nil {
		return fail("failed to declare queue: %w", err)
	}

	// Declare dead letter queue
	dlqName := config.QueueName + ".dlq"
	if _, err := channel.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fail("failed to declare DLQ: %w", err)
	}

	// Bind DLQ to DLX and queue to exchange on the same keys
	for _, routingKey := range config.RoutingKeys {
		if err := channel.QueueBind(dlqName, routingKey, dlxName, false, nil); err != nil {
			return fail("failed to bind DLQ: %w", err)
		}
		if err := channel.QueueBind(queue.Name, routingKey, config.Exchange, false, nil); err != nil {
			return fail("failed to bind queue: %w", err)
		}
	}

	zap.L().Info("RabbitMQ consumer created successfully",
		zap.String("queue", config.QueueName),
		zap.String("exchange", config.Exchange),
		zap.Strings("routingKeys", config.RoutingKeys),
	)

	return &Consumer{
		conn:           conn,
		channel:        channel,
		queueName:      config.QueueName,
		serviceName:    config.ServiceName,
		workerPoolSize: max(config.WorkerPoolSize, 1),
		handleTimeout:  30 * time.Second,
	}, nil
}

// Consume dispatches deliveries to handler on a bounded pool of workers until
// ctx is cancelled or the channel closes.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		c.serviceName, // consumer tag
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	zap.L().Info("Started consuming messages",
		zap.String("queue", c.queueName),
		zap.Int("workers", c.workerPoolSize),
	)

	return c.dispatch(ctx, msgs, handler)
}

// dispatch blocks on a free worker slot before taking the next delivery
func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery, handler EventHandler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	slots := make(chan struct{}, max(c.workerPoolSize, 1))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Consumer context cancelled, stopping...")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				zap.L().Warn("Message channel closed")
				return fmt.Errorf("message channel closed")
			}

			slots <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-slots }()
				c.handleMessage(ctx, msg, handler)
			}()
		}
	}
}

// handleMessage processes a single message
func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	// Extract headers for logging
	traceID, _ := msg.Headers["x-trace-id"].(string)
	correlationID, _ := msg.Headers["x-correlation-id"].(string)
	service, _ := msg.Headers["x-service"].(string)

	zap.L().Info("Received message",
		zap.String("queue", c.queueName),
		zap.String("routingKey", msg.RoutingKey),
		zap.String("traceId", traceID),
		zap.String("correlationId", correlationID),
		zap.String("sourceService", service),
	)

	// Parse the event
	var event events.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		zap.L().Error("Failed to unmarshal event",
			zap.Error(err),
			zap.String("traceId", traceID),
		)
		// malformed messages go to the DLQ
		msg.Nack(false, false)
		return
	}

	// Process the event with timeout
	timeout := c.handleTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := handler(processCtx, &event); err != nil {
		zap.L().Error("Failed to process event",
			zap.Error(err),
			zap.String("event", event.Event),
			zap.String("traceId", traceID),
		)
		// handler failures are dead-lettered too, not requeued
		msg.Nack(false, false)
		return
	}

	// Acknowledge successful processing
	if err := msg.Ack(false); err != nil {
		zap.L().Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("traceId", traceID),
		)
		return
	}

	zap.L().Info("Successfully processed event",
		zap.String("event", event.Event),
		zap.String("traceId", traceID),
	)
}

// Close closes the consumer channel and connection
func (c *Consumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			zap.L().Error("Failed to close channel", zap.Error(err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			zap.L().Error("Failed to close connection", zap.Error(err))
			return err
		}
	}
	zap.L().Info("RabbitMQ consumer closed")
	return nil
}
