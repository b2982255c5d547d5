package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jwalitptl/wellness-api/pkg/circuitbreaker"
	"github.com/jwalitptl/wellness-api/pkg/messaging"
)

type Config struct {
	Brokers      []string
	TopicPrefix  string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// messageWriter is the part of *kafka.Writer the broker needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaBroker struct {
	writer messageWriter
	cb     *circuitbreaker.CircuitBreaker
	logger *zerolog.Logger
	prefix string
}

func NewKafkaBroker(config Config, logger *zerolog.Logger) (*KafkaBroker, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker address is required")
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 50 * time.Millisecond
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	// Topic is set per message so one writer serves every event type.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return newBroker(writer, config.TopicPrefix, logger), nil
}

func newBroker(writer messageWriter, prefix string, logger *zerolog.Logger) *KafkaBroker {
	return &KafkaBroker{
		writer: writer,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "kafka-broker",
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     5 * time.Second,
		}),
		logger: logger,
		prefix: prefix,
	}
}

func (b *KafkaBroker) Publish(ctx context.Context, topic string, message interface{}) error {
	payload, err := messaging.Encode(message)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: b.prefix + topic,
		Value: payload,
		Time:  time.Now(),
	}
	if m, ok := message.(messaging.Message); ok && m.ID != "" {
		msg.Key = []byte(m.ID)
	}

	return b.cb.Execute(func() error {
		if err := b.writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to write kafka message: %w", err)
		}
		return nil
	})
}

func (b *KafkaBroker) Close() error {
	return b.writer.Close()
}

var _ messaging.Broker = (*KafkaBroker)(nil)
