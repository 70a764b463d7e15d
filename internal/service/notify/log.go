package notify

import (
	"context"

	"PulseWatch/internal/domain/models"
	"PulseWatch/pkg/logger"
)

// LogDispatcher writes notifications to the application log.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Name() string { return "log" }

func (d *LogDispatcher) Dispatch(_ context.Context, n models.Notification) error {
	d.log.Info(n.Title,
		logger.String("id", n.ID),
		logger.String("user_id", n.UserID),
		logger.String("tag", n.Tag),
		logger.String("body", n.Body))
	return nil
}
