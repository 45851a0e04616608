package mq

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/logging"
)

// KafkaClient maps channels to Kafka topics. Consumers join the configured
// group so that each notification is handled once.
type KafkaClient struct {
	brokers []string
	groupID string
	writer  *kafka.Writer
}

// NewKafkaClient prepares a writer for cfg.Brokers. Connections are made
// lazily by kafka-go.
func NewKafkaClient(cfg config.KafkaConfig) (*KafkaClient, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	log := logging.Component("kafka")
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		MaxAttempts:            5,
		BatchTimeout:           50 * time.Millisecond,
		Balancer:               &kafka.LeastBytes{},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Errorf(msg, args...)
		}),
	}

	return &KafkaClient{brokers: brokers, groupID: cfg.GroupID, writer: writer}, nil
}

// Publish writes one message to the topic named channel.
func (k *KafkaClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("kafka channel is required")
	}

	messageID := uuid.NewString()
	headers := make([]kafka.Header, 0, len(attrs))
	for key, value := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic:   channel,
		Key:     []byte(messageID),
		Value:   data,
		Headers: headers,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe reads the topic named channel until ctx is done. Offsets are
// committed only after the handler succeeds.
func (k *KafkaClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("kafka channel is required")
	}

	log := logging.Component("kafka")
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:          k.brokers,
		Topic:            channel,
		GroupID:          k.groupID,
		MaxWait:          time.Second,
		JoinGroupBackoff: 3 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Errorf(msg, args...)
		}),
	})
	defer func() {
		_ = reader.Close()
	}()

	for {
		record, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		attrs := make(map[string]string, len(record.Headers))
		for _, header := range record.Headers {
			attrs[header.Key] = string(header.Value)
		}
		message := Message{ID: string(record.Key), Data: record.Value, Attributes: attrs}

		if err := handler(ctx, message); err != nil {
			log.WithError(err).WithField("message_id", message.ID).Warn("handler failed, offset not committed")
			continue
		}
		if err := reader.CommitMessages(ctx, record); err != nil {
			return err
		}
	}
}

// Close flushes and closes the writer.
func (k *KafkaClient) Close() error {
	return k.writer.Close()
}
