package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer publishes order lifecycle events. Publishing is fire-and-forget
// from the caller's point of view: a broker outage must never fail a
// booking request.
type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

// Publish sends one message to a topic, keyed so events for the same order
// stay ordered within a partition.
func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
