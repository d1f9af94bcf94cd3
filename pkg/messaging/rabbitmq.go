// Package messaging publishes and consumes lead events over RabbitMQ.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/leadflow/leadflow-backend/pkg/config"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

// RabbitMQ owns one connection and one channel
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
	mu      sync.RWMutex
}

// New dials the broker. A refused dial is retried MaxRetries times,
// ReconnectDelay apart, so the service can start before the broker.
func New(ctx context.Context, cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, ch, err := dial(cfg)
		if err == nil {
			log.Info().Int("attempt", i).Msg("connected to RabbitMQ")
			return &RabbitMQ{conn: conn, channel: ch, logger: log}, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Int("max_attempts", attempts).Msg("RabbitMQ connection attempt failed")

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.ReconnectDelay):
		}
	}
	return nil, lastErr
}

func dial(cfg *config.RabbitMQConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}
	return conn, ch, nil
}

// Channel returns the shared channel
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close closes the channel and the connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to close channel")
	}
	if err := r.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports whether the connection is open
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.conn.IsClosed() {
		return map[string]string{"status": "down", "error": "connection closed"}
	}
	return map[string]string{"status": "up"}
}

// DeclareExchange declares a durable topic exchange
func (r *RabbitMQ) DeclareExchange(name string) error {
	return r.Channel().ExchangeDeclare(name, "topic", true, false, false, false, nil)
}

// DeclareQueue declares a durable queue. An empty name declares a
// server-named exclusive queue that is deleted with the connection.
func (r *RabbitMQ) DeclareQueue(name string) (amqp.Queue, error) {
	temporary := name == ""
	return r.Channel().QueueDeclare(
		name,
		!temporary, // durable
		temporary,  // auto-delete
		temporary,  // exclusive
		false,
		nil,
	)
}

// BindQueue binds a queue to an exchange with a routing key pattern
func (r *RabbitMQ) BindQueue(queueName, exchange, routingKey string) error {
	return r.Channel().QueueBind(queueName, routingKey, exchange, false, nil)
}
