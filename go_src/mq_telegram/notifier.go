package mq_telegram

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Notifier delivers operator messages. Delivery is best effort: failures are logged, never returned.
type Notifier interface {
	Notify(text string)
}

const notifyTimeout = 10 * time.Second

// TelegramNotifier sends straight to the Bot API.
type TelegramNotifier struct {
	bot *TelegramBot
}

func NewTelegramNotifier(bot *TelegramBot) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (n *TelegramNotifier) Notify(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := n.bot.SendMessage(ctx, text); err != nil {
		logrus.Errorf("Failed to send Telegram message: %v", err)
	}
}

// MQNotifier publishes to the relay queue.
type MQNotifier struct {
	conn  *amqp.Connection
	queue string
	send  func(conn *amqp.Connection, queue, text string) error
}

func NewMQNotifier(conn *amqp.Connection, queue string) *MQNotifier {
	if queue == "" {
		queue = TelegramQueueName
	}
	return &MQNotifier{conn: conn, queue: queue, send: SendMessageToMQForTelegram}
}

func (n *MQNotifier) Notify(text string) {
	if err := n.send(n.conn, n.queue, text); err != nil {
		logrus.Errorf("Failed to queue Telegram message: %v", err)
	}
}

// LogNotifier only logs; used when no bot is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(text string) {
	logrus.Info(text)
}
