package notify

import (
	"context"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	"PulseWatch/internal/repository"
)

// HistoryDispatcher records each notification in alert history.
type HistoryDispatcher struct {
	store drepo.AlertHistory
}

func NewHistoryDispatcher(store drepo.AlertHistory) *HistoryDispatcher {
	return &HistoryDispatcher{store: store}
}

func (d *HistoryDispatcher) Name() string { return "history" }

func (d *HistoryDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	return d.store.Store(ctx, []models.AlertRecord{repository.RecordFromNotification(n)})
}
