// Package mq provides a broker-agnostic message queue used to hand
// password-reset mail jobs to the delivery worker.
package mq

import (
	"context"
	"fmt"

	"github.com/authcore/apiserver/config"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NewBackend constructs the broker selected by MAIL_BACKEND. The "smtp"
// backend is in-process and has no broker; callers handle it before
// reaching here.
func NewBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.Mail.Backend {
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Mail.Backend)
	}
}
