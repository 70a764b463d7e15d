package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	pkgkafka "PulseWatch/pkg/kafka"
)

var ErrInvalidNotification = errors.New("invalid notification payload")

// AlertDeliveryHandler consumes notifications published on the alert topic
// and hands them to the downstream channels (chat, history).
type AlertDeliveryHandler struct {
	topic      string
	dispatcher drepo.Dispatcher
	metrics    drepo.Metrics
	now        func() time.Time
}

func NewAlertDeliveryHandler(topic string, dispatcher drepo.Dispatcher, metrics drepo.Metrics) *AlertDeliveryHandler {
	return &AlertDeliveryHandler{topic: topic, dispatcher: dispatcher, metrics: metrics, now: time.Now}
}

func (h *AlertDeliveryHandler) Topic() string { return h.topic }

func (h *AlertDeliveryHandler) Handle(ctx context.Context, b []byte) error {
	var n models.Notification
	if err := json.Unmarshal(b, &n); err != nil {
		h.metrics.RecordError("delivery_unmarshal")
		return fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}
	if n.ID == "" || n.UserID == "" {
		h.metrics.RecordError("delivery_invalid")
		return fmt.Errorf("%w: missing id or user", ErrInvalidNotification)
	}

	if !n.Alert.CreatedAt.IsZero() {
		h.metrics.RecordLatency("delivery_lag", h.now().Sub(n.Alert.CreatedAt).Seconds())
	}

	if err := h.dispatcher.Dispatch(ctx, n); err != nil {
		h.metrics.RecordError("delivery_dispatch")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*AlertDeliveryHandler)(nil)
