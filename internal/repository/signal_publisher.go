package repository

import (
	"context"

	"AutoTrader/internal/domain/models"
	pkgkafka "AutoTrader/pkg/kafka"
)

type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...pkgkafka.Header) error
}

// KafkaSignalPublisher sends each signal's wire payload keyed by pair.
type KafkaSignalPublisher struct {
	producer messagePublisher
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, pair string, mode models.Mode, s models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(pair), s.Payload(),
		pkgkafka.Header{Key: "mode", Value: mode.Key()},
		pkgkafka.Header{Key: "status", Value: string(s.Status)},
	)
}
