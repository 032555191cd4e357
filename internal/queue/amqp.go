package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPPublisher publishes JSON payloads to durable RabbitMQ queues named after the topic.
type AMQPPublisher struct {
	lock     chan struct{}
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	logger   *zap.Logger
}

func DialAMQP(url string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return &AMQPPublisher{
		lock:     make(chan struct{}, 1),
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
		logger:   log,
	}, nil
}

// acquire takes the channel lock or gives up when ctx is done.
func (p *AMQPPublisher) acquire(ctx context.Context) error {
	select {
	case p.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AMQPPublisher) release() {
	<-p.lock
}

// Publish declares the queue on first use. amqp channels are not safe for
// concurrent use, so publishes are serialized; a publish waiting behind
// another one returns when ctx is done. The broker write itself cannot be
// interrupted.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", topic, err)
	}

	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()
	if err := ctx.Err(); err != nil {
		return err
	}

	if !p.declared[topic] {
		_, err := p.ch.QueueDeclare(
			topic,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", topic, err)
		}
		p.declared[topic] = true
	}

	err = p.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.logger.Debug("published message", zap.String("queue", topic), zap.Int("bytes", len(body)))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.lock <- struct{}{}
	defer p.release()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
