package notify

import (
	"context"
	"errors"
	"fmt"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	"PulseWatch/pkg/logger"
)

var ErrNoChannels = errors.New("no notification channels configured")

// Multi fans a notification out to every channel. Channel failures are
// logged and counted; Dispatch fails only when no channel accepted it.
type Multi struct {
	channels []drepo.Dispatcher
	log      *logger.Logger
	metrics  drepo.Metrics
}

func NewMulti(log *logger.Logger, metrics drepo.Metrics, channels ...drepo.Dispatcher) *Multi {
	out := make([]drepo.Dispatcher, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Multi{channels: out, log: log, metrics: metrics}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Channels() []string {
	names := make([]string, len(m.channels))
	for i, c := range m.channels {
		names[i] = c.Name()
	}
	return names
}

func (m *Multi) Dispatch(ctx context.Context, n models.Notification) error {
	if len(m.channels) == 0 {
		return ErrNoChannels
	}

	var errs []error
	for _, c := range m.channels {
		err := c.Dispatch(ctx, n)
		if m.metrics != nil {
			m.metrics.RecordDispatch(c.Name(), err)
		}
		if err != nil {
			m.log.Warn("notification channel failed",
				logger.String("channel", c.Name()),
				logger.String("id", n.ID),
				logger.String("tag", n.Tag),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	if len(errs) == len(m.channels) {
		return errors.Join(errs...)
	}
	return nil
}

var _ drepo.Dispatcher = (*Multi)(nil)
