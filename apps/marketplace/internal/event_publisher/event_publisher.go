package event_publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/events"
	"marketplace/apps/marketplace/internal/model"
)

// EventPublisher sends order lifecycle events to Kafka.
type EventPublisher struct {
	logger        *zap.Logger
	kafkaProducer *kafka.Producer
	kafkaTopic    string
}

func NewEventPublisher(kafkaBroker, kafkaTopic string, logger *zap.Logger) (*EventPublisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  kafkaBroker,
		"acks":               "all",
		"retries":            3,
		"retry.backoff.ms":   100,
		"message.timeout.ms": 30000, // librdkafka default is 5 minutes
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &EventPublisher{
		logger:        logger,
		kafkaProducer: producer,
		kafkaTopic:    kafkaTopic,
	}, nil
}

// PublishOrderCreated publishes an order_created event keyed by seller and waits for the
// broker to acknowledge it.
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, order model.Order) error {
	msgBytes, err := json.Marshal(events.NewOrderCreatedEvent(order, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to marshal order created event: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)

	err = ep.kafkaProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &ep.kafkaTopic, Partition: kafka.PartitionAny},
		Key:            []byte(order.Seller), // same seller, same partition
		Value:          msgBytes,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce order created event: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				return ev.TopicPartition.Error
			}
			ep.logger.Info("Published order created event",
				zap.String("order_id", order.ID),
				zap.String("topic", ep.kafkaTopic),
				zap.Int32("partition", ev.TopicPartition.Partition))
			return nil
		default:
			return fmt.Errorf("unexpected kafka event type: %T", e)
		}
	}
}

func (ep *EventPublisher) Close() error {
	if ep.kafkaProducer != nil {
		ep.kafkaProducer.Flush(5000)
		ep.kafkaProducer.Close()
	}
	return nil
}
