// Package mq carries booking notifications between the API server and the
// notifier worker over a message broker.
package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/charismamove/apiserver/config"
)

const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
	BackendKafka    = "kafka"
	BackendMemory   = "memory"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends messages to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publisher
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// IsBroker reports whether name selects a broker backend.
func IsBroker(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendRabbitMQ, BackendPubSub, BackendKafka, BackendMemory:
		return true
	}
	return false
}

// Open connects to the broker selected by name.
func Open(ctx context.Context, name string, cfg config.Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendRabbitMQ:
		return NewRabbitMQClient(cfg.RabbitMQ)
	case BackendPubSub:
		return NewPubSubClient(ctx, cfg.PubSub)
	case BackendKafka:
		return NewKafkaClient(cfg.Kafka)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported broker backend %q", name)
	}
}
