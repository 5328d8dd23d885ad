package repository

import (
	"context"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
)

// keyedPublisher is the subset of the Kafka producer the event publisher uses.
type keyedPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaEventPublisher announces written partitions on a Kafka topic, keyed by
// instrument so one instrument's events stay ordered.
type KafkaEventPublisher struct {
	producer keyedPublisher
	topic    string
}

func NewKafkaEventPublisher(producer keyedPublisher, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishPartition(ctx context.Context, ev models.PartitionWritten) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.InstrumentID), ev)
}

var _ drepo.EventPublisher = (*KafkaEventPublisher)(nil)
