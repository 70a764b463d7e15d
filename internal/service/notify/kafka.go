package notify

import (
	"context"

	"PulseWatch/internal/domain/models"
	pkgkafka "PulseWatch/pkg/kafka"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaDispatcher hands notifications to the alert topic, keyed by user so a
// user's alerts stay ordered. Slow channels consume them downstream.
type KafkaDispatcher struct {
	producer batchPublisher
	topic    string
}

func NewKafkaDispatcher(producer batchPublisher, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic}
}

func (d *KafkaDispatcher) Name() string { return "kafka" }

func (d *KafkaDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	return d.producer.PublishBatch(ctx, d.topic, []pkgkafka.Message{{
		Key:     []byte(n.UserID),
		Value:   n,
		Headers: map[string]string{"trace_id": n.TickID},
	}})
}
