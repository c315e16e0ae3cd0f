package mq_telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const TelegramQueueName = "telegram_channel"

const publishTimeout = 5 * time.Second

// MQMessage is the body published for the Telegram relay.
type MQMessage struct {
	Message   string    `json:"message"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `json:"sent_at,omitempty"`
}

// amqpChannel is the slice of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// buildPublishing wraps text in a persistent JSON message with a fresh id.
func buildPublishing(text string, now time.Time) (amqp.Publishing, error) {
	id := uuid.NewString()
	body, err := json.Marshal(MQMessage{Message: text, MessageID: id, SentAt: now.UTC()})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal message to JSON for RabbitMQ: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    id,
		Timestamp:    now.UTC(),
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}, nil
}

// DecodeMQMessage reads a relay message. Bodies carrying only "message" are accepted.
func DecodeMQMessage(body []byte) (MQMessage, error) {
	var msg MQMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return MQMessage{}, fmt.Errorf("failed to decode MQ message: %w", err)
	}
	if msg.Message == "" {
		return MQMessage{}, fmt.Errorf("MQ message has no text")
	}
	return msg, nil
}

// DeclareQueue declares queue as durable, matching the relay's consumer.
func DeclareQueue(ch amqpChannel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare RabbitMQ queue '%s': %w", queue, err)
	}
	return nil
}

func publishText(ctx context.Context, ch amqpChannel, queue, text string) error {
	if err := DeclareQueue(ch, queue); err != nil {
		return err
	}
	msg, err := buildPublishing(text, time.Now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message to RabbitMQ queue '%s': %w", queue, err)
	}
	return nil
}

// SendMessageToMQForTelegram publishes text to the relay queue on a short-lived channel.
// The connection stays open.
func SendMessageToMQForTelegram(conn *amqp.Connection, queue, text string) error {
	if conn == nil {
		return fmt.Errorf("rabbitmq connection cannot be nil")
	}
	if conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if queue == "" {
		queue = TelegramQueueName
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a RabbitMQ channel: %w", err)
	}
	defer ch.Close()
	return publishText(context.Background(), ch, queue, text)
}
