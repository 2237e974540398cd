package notify

import (
	"context"
	"fmt"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher forwards event-channel outbox rows to a Kafka topic keyed
// by order number, so one order's events stay on one partition.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Handle(ctx context.Context, msg *models.OutboxMessage) error {
	ev, err := decodeEvent(msg.Payload)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderNumber),
		Value: []byte(msg.Payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s for order %s: %w", msg.Kind, ev.OrderNumber, err)
	}
	return nil
}
