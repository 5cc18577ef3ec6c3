package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher forwards order lifecycle events to downstream consumers.
// All events go to one topic keyed by order id; the pub/sub topic travels
// as a header.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (k *KafkaPublisher) Publish(ctx context.Context, topic string, ev Event) error {
	msg, err := kafkaMessage(topic, ev)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.Type, err)
	}
	return nil
}

func kafkaMessage(topic string, ev Event) (kafka.Message, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: raw,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(topic)},
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
