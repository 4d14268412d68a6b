package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/spec-kit/grievance-service/internal/config"
)

// RabbitMQPublisher publishes JSON messages to a single durable queue.
type RabbitMQPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQPublisher dials the broker and declares the configured queue.
func NewRabbitMQPublisher(cfg config.RabbitMQConfig) (*RabbitMQPublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(cfg.Queue) == "" {
		return nil, errors.New("rabbitmq queue is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQPublisher{conn: conn, channel: ch, queue: cfg.Queue}, nil
}

// Publish sends data to the queue and returns the generated message id.
func (r *RabbitMQPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := uuid.NewString()
	// amqp channels are not safe for concurrent publishes.
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.channel.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Close closes the channel and connection.
func (r *RabbitMQPublisher) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
