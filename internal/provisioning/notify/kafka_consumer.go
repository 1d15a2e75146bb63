package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Relay drains the outbound mail topic and hands every message to a
// delivering transport. A message is retried in place until it is delivered
// or its retry budget runs out, so later offsets never overtake it.
type Relay struct {
	reader     KafkaReader
	transport  Transport
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

func NewRelay(brokers []string, groupID, topic string, transport Transport, logger *zap.Logger) *Relay {
	return &Relay{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
			Dialer:  kafka.DefaultDialer,
		}),
		transport: transport,
		logger:    logger.Named("mail_relay"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 5 * time.Minute
			return b
		},
	}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		r.handle(ctx, msg)
		if ctx.Err() != nil {
			return
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			r.logger.Error("Failed to commit message",
				zap.Error(err),
				zap.Int64("offset", msg.Offset),
			)
		}
	}
}

// handle delivers one message. Undecodable or undeliverable messages are
// logged and dropped so they do not block the partition.
func (r *Relay) handle(ctx context.Context, msg kafka.Message) {
	var out Message
	if err := json.Unmarshal(msg.Value, &out); err != nil {
		r.logger.Error("Failed to parse message",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
		)
		return
	}

	op := func() error {
		return r.transport.Send(ctx, out)
	}
	if err := backoff.Retry(op, backoff.WithContext(r.newBackOff(), ctx)); err != nil {
		r.logger.Error("Failed to deliver message",
			zap.Error(err),
			zap.String("kind", string(out.Kind)),
			zap.String("business_id", out.BusinessID),
			zap.Int64("offset", msg.Offset),
		)
	}
}

func (r *Relay) Close() {
	if err := r.reader.Close(); err != nil {
		r.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
	if err := r.transport.Close(); err != nil {
		r.logger.Error("Failed to close relay transport", zap.Error(err))
	}
}
