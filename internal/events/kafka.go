package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter builds a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  strings.TrimSpace(topic),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaNotifier publishes every event to a single Kafka topic, keyed by
// aggregate so events for one order stay ordered within a partition.
type KafkaNotifier struct {
	Writer MessageWriter
}

// Sink implements Named.
func (KafkaNotifier) Sink() string { return "kafka" }

// Notify publishes event.
func (k KafkaNotifier) Notify(ctx context.Context, event Event) error {
	if k.Writer == nil {
		return nil
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(event.Topic)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	})
}
