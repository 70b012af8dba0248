package kafka

import (
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Order lifecycle topics, keyed by order id.
const (
	TopicOrderCreated   = "dripsync.order.created"
	TopicOrderPaid      = "dripsync.order.paid"
	TopicOrderFulfilled = "dripsync.order.fulfilled"
	TopicOrderFailed    = "dripsync.order.failed"
)

func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPaid,
		TopicOrderFulfilled,
		TopicOrderFailed,
	}
}

// EnsureTopicsExist creates the given topics if they don't already exist.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		topicConfigs := []kafka.TopicConfig{
			{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		}

		err = controllerConn.CreateTopics(topicConfigs...)
		if err != nil {
			if err.Error() == "kafka server: topic already exists" {
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
			// Keep going; missing topics only cost the first publish.
		}
	}

	// Give the brokers a moment to settle the new topics.
	time.Sleep(1 * time.Second)
	return nil
}
