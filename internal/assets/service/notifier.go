package service

import (
	"context"
	"time"

	"depot/pkg/kafka"
)

const (
	resyncCompletedEvent = "resync.completed"

	// Every reconciliation notification shares one key so consumers see
	// passes in order.
	resyncPartitionKey = "resync"
)

// ResyncNotifier publishes the outcome of a reconciliation pass.
type ResyncNotifier interface {
	ResyncCompleted(ctx context.Context, scanned, corrected int) error
}

type resyncNotification struct {
	Scanned     int       `json:"scanned"`
	Corrected   int       `json:"corrected"`
	CompletedAt time.Time `json:"completed_at"`
}

type kafkaResyncNotifier struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaResyncNotifier(producer *kafka.Producer, source string) ResyncNotifier {
	return &kafkaResyncNotifier{
		producer: producer,
		source:   source,
	}
}

func (n *kafkaResyncNotifier) ResyncCompleted(ctx context.Context, scanned, corrected int) error {
	msg := kafka.NewMessage().
		WithKey(resyncPartitionKey).
		WithEventType(resyncCompletedEvent).
		WithSource(n.source).
		WithValue(resyncNotification{
			Scanned:     scanned,
			Corrected:   corrected,
			CompletedAt: time.Now().UTC(),
		}).
		Build()

	return n.producer.Publish(ctx, msg)
}

// NoopResyncNotifier is used when no Kafka brokers are configured.
type NoopResyncNotifier struct{}

func (NoopResyncNotifier) ResyncCompleted(ctx context.Context, scanned, corrected int) error {
	return nil
}
