package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/leadflow/leadflow-backend/pkg/logger"
)

// maxDeaths is how often a message may be dead-lettered before it is
// rejected for good
const maxDeaths = 3

// MessageHandler processes one event
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer dispatches events from one queue to handlers by event type
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewConsumer creates a new consumer for the given queue. An empty queue
// name consumes from a temporary exclusive queue.
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	q, err := rmq.DeclareQueue(queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return &Consumer{
		rmq:       rmq,
		queueName: q.Name,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}, nil
}

// Subscribe binds the queue to exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")
	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// On registers a handler that receives the event data decoded as T
func On[T any](c *Consumer, eventType string, fn func(ctx context.Context, event *Event, data T) error) {
	c.RegisterHandler(eventType, func(ctx context.Context, event *Event) error {
		var data T
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("decode %s data: %w", eventType, err)
		}
		return fn(ctx, event, data)
	})
}

// Run consumes messages until ctx is done or the channel closes
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.rmq.Channel().ConsumeWithContext(ctx, c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handleMessage(ctx, msg)
		}
	}
}

type outcome int

const (
	ack outcome = iota
	requeue
	reject
)

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var err error
	switch c.dispatch(ctx, msg) {
	case ack:
		err = msg.Ack(false)
	case requeue:
		err = msg.Nack(false, true)
	case reject:
		err = msg.Reject(false)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.MessageId).Msg("failed to settle message")
	}
}

// dispatch runs the handler for msg. Malformed and unknown events are
// settled without retry; a failed handler gets one requeue.
func (c *Consumer) dispatch(ctx context.Context, msg amqp.Delivery) outcome {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		return reject
	}

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("no handler registered for event type")
		return ack
	}

	if err := handler(WithCorrelationID(ctx, event.CorrelationID), &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")
		if msg.Redelivered || deathCount(msg) >= maxDeaths {
			return reject
		}
		return requeue
	}
	return ack
}

func deathCount(msg amqp.Delivery) int {
	deaths, _ := msg.Headers["x-death"].([]interface{})
	for _, death := range deaths {
		if d, ok := death.(amqp.Table); ok {
			if count, ok := d["count"].(int64); ok {
				return int(count)
			}
		}
	}
	return 0
}
