package mq_telegram

import (
	"fmt"
	"net/url"

	"fyersbot/go_src/configuration"

	amqp "github.com/rabbitmq/amqp091-go"
)

var dialAMQP = amqp.Dial

// ConnectionURL builds the amqp:// URL for the rabbitmq section. An empty vhost means "/".
func ConnectionURL(mq configuration.RabbitMQ) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(mq.Username, mq.Password),
		Host:   fmt.Sprintf("%s:%d", mq.Host, mq.Port),
		Path:   "/",
	}
	if mq.VirtualHost != "" && mq.VirtualHost != "/" {
		u.Path += mq.VirtualHost
	}
	return u.String()
}

// Dial connects to RabbitMQ. The caller closes the connection.
func Dial(cfg *configuration.Config) (*amqp.Connection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	conn, err := dialAMQP(ConnectionURL(cfg.RabbitMQ))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ at %s:%d: %w", cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, err)
	}
	return conn, nil
}
