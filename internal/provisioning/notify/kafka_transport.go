package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport publishes rendered messages to a topic drained by the mail
// relay. Messages carry plaintext credentials, so the topic is created with a
// bounded retention.
type KafkaTransport struct {
	writer KafkaWriter
	logger *zap.Logger
}

func NewKafkaTransport(brokers []string, topic string, retention time.Duration, logger *zap.Logger) (*KafkaTransport, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka transport: no brokers configured")
	}
	logger = logger.Named("kafka_transport")

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(mailTopicConfig(topic, retention))
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	return &KafkaTransport{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}, nil
}

// mailTopicConfig describes the mail topic. A non-positive retention leaves
// the broker default in place.
func mailTopicConfig(topic string, retention time.Duration) kafka.TopicConfig {
	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}
	if retention > 0 {
		cfg.ConfigEntries = []kafka.ConfigEntry{
			{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(retention.Milliseconds(), 10)},
		}
	}
	return cfg
}

func (t *KafkaTransport) Send(ctx context.Context, msg Message) error {
	value, err := jsonMarshal(msg)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("serialize message: %w", err))
	}
	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
	})
}

func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
