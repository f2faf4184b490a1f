package repository

import (
	"context"
	"strings"

	"PortOpt/internal/domain/models"
	"PortOpt/internal/domain/repository"
	pkgkafka "PortOpt/pkg/kafka"
)

// KafkaResultPublisher implements ResultPublisher on a Kafka topic. Each
// completed optimization report is emitted as one JSON message keyed by the
// sorted ticker list so replays of the same universe land in one partition.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaResultPublisher creates a Kafka-backed result publisher.
func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) repository.ResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishReport(ctx context.Context, report *models.OptimizationReport) error {
	key := []byte(strings.Join(report.Tickers, ","))
	return p.producer.Publish(ctx, p.topic, key, report)
}

func (p *KafkaResultPublisher) Close() error {
	return p.producer.Close()
}

// NopResultPublisher discards reports; used when Kafka is disabled.
type NopResultPublisher struct{}

// NewNopResultPublisher creates a publisher that drops every report.
func NewNopResultPublisher() repository.ResultPublisher { return NopResultPublisher{} }

func (NopResultPublisher) PublishReport(context.Context, *models.OptimizationReport) error {
	return nil
}

func (NopResultPublisher) Close() error { return nil }
