package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/logging_helper"
	"fyersbot/go_src/mq_telegram"
	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/retry_helper"
	"fyersbot/go_src/trade_exceptions"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	appName     = "fyers-telegram"
	sendTimeout = 15 * time.Second
)

type outcome int

const (
	outcomeAck outcome = iota
	outcomeReject
	outcomeRequeue
)

func (o outcome) String() string {
	switch o {
	case outcomeAck:
		return "ack"
	case outcomeReject:
		return "reject"
	case outcomeRequeue:
		return "requeue"
	}
	return "unknown"
}

// processDelivery forwards one queued message. Undecodable bodies and messages Telegram refuses
// are dropped; transport failures go back on the queue.
func processDelivery(ctx context.Context, body []byte, send func(ctx context.Context, text string) error) outcome {
	msg, err := mq_telegram.DecodeMQMessage(body)
	if err != nil {
		logrus.Errorf("Dropping message: %v. Body: %.200s", err, string(body))
		return outcomeReject
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := send(ctx, msg.Message); err != nil {
		if trade_exceptions.IsRetryable(err) {
			logrus.Warnf("Telegram send failed for message %s, requeueing: %v", msg.MessageID, err)
			return outcomeRequeue
		}
		logrus.Errorf("Telegram refused message %s: %v", msg.MessageID, err)
		return outcomeReject
	}
	logrus.Infof("Message %s forwarded to Telegram", msg.MessageID)
	return outcomeAck
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(d acknowledger, o outcome) {
	var err error
	switch o {
	case outcomeAck:
		err = d.Ack(false)
	case outcomeReject:
		err = d.Nack(false, false)
	case outcomeRequeue:
		err = d.Nack(false, true)
	}
	if err != nil {
		logrus.Errorf("Failed to %s delivery: %v", o, err)
	}
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, send func(ctx context.Context, text string) error) {
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Shutdown signal received. Exiting consumer loop.")
			return
		case d, ok := <-msgs:
			if !ok {
				logrus.Error("Message channel closed by RabbitMQ.")
				return
			}
			settle(d, processDelivery(ctx, d.Body, send))
		}
	}
}

var (
	dialRabbitMQ  = mq_telegram.Dial
	connectPolicy = func() (*retry_helper.Policy, error) { return retry_helper.NewPolicy(4, 5*time.Second, 1.5) }
)

// connectRabbitMQ dials the broker, retrying while it comes up.
func connectRabbitMQ(ctx context.Context, cfg *configuration.Config) (*amqp.Connection, error) {
	policy, err := connectPolicy()
	if err != nil {
		return nil, fmt.Errorf("invalid RabbitMQ connect policy: %w", err)
	}
	return retry_helper.DoValue(ctx, policy, "connect RabbitMQ", func(ctx context.Context) (*amqp.Connection, error) {
		return dialRabbitMQ(cfg)
	})
}

func main() {
	log.Printf("Starting %s application...", appName)

	configPath := configuration.ConfigPath()
	cfg, err := configuration.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", configPath, err)
	}
	if err := logging_helper.SetupLogging(cfg, appName); err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}

	bot, err := mq_telegram.NewTelegramBot(rest_client.NewHTTPExecutor(sendTimeout, nil), cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.BaseURL)
	if err != nil {
		logrus.Fatalf("Telegram is not configured: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := connectRabbitMQ(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logrus.Fatalf("Failed to open a RabbitMQ channel: %v", err)
	}
	defer ch.Close()

	if err := mq_telegram.DeclareQueue(ch, mq_telegram.TelegramQueueName); err != nil {
		logrus.Fatal(err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		logrus.Fatalf("Failed to set QoS: %v", err)
	}
	msgs, err := ch.Consume(mq_telegram.TelegramQueueName, appName, false, false, false, false, nil)
	if err != nil {
		logrus.Fatalf("Failed to register a consumer: %v", err)
	}
	logrus.Infof("Consuming '%s'. Waiting for messages...", mq_telegram.TelegramQueueName)

	consume(ctx, msgs, bot.SendMessage)
	logrus.Infof("%s shut down.", appName)
}
