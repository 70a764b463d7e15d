package repository

import (
	"context"
	"time"

	"PulseWatch/internal/domain/models"
)

// InstrumentRegistry is a read-only view of the watchlist store.
type InstrumentRegistry interface {
	ListAll(ctx context.Context) ([]models.Instrument, error)
	ListByUser(ctx context.Context, userID string) ([]models.Instrument, error)
}

// SnapshotSource returns price snapshots keyed by models.SymbolKey. Missing
// symbols are absent from the map, not an error.
type SnapshotSource interface {
	Snapshots(ctx context.Context, assetType models.AssetType, symbols []string) (map[string]models.PriceSnapshot, error)
}

// Dispatcher delivers a notification. Failures are reported, never retried
// by the caller.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, n models.Notification) error
}

// CooldownStore holds the last dispatch time per models.CooldownKey.
type CooldownStore interface {
	LastSent(ctx context.Context, keys []string) (map[string]time.Time, error)
	MarkSent(ctx context.Context, keys []string, at time.Time, ttl time.Duration) error
}

// AlertHistory persists and queries dispatched alerts.
type AlertHistory interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, records []models.AlertRecord) error
	Query(ctx context.Context, q HistoryQuery) ([]models.AlertRecord, error)
	Close() error
}

type HistoryQuery struct {
	UserID string
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type Metrics interface {
	RecordTick(outcome string, seconds float64)
	RecordAlerts(stage string, n int)
	RecordDispatch(channel string, err error)
	RecordNormalize(outcome, reason string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
