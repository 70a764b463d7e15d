package repository

import (
	"context"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	"PulseWatch/pkg/config"
)

// StaticWatchlist serves the watchlist declared in the config file.
type StaticWatchlist struct {
	items []models.Instrument
}

func NewStaticWatchlist(entries []config.WatchedAsset, defaultThreshold float64) *StaticWatchlist {
	if defaultThreshold <= 0 {
		defaultThreshold = models.DefaultAlertThreshold
	}
	items := make([]models.Instrument, 0, len(entries))
	for _, e := range entries {
		threshold := e.AlertThreshold
		if threshold == 0 {
			threshold = defaultThreshold
		}
		items = append(items, models.Instrument{
			UserID:                e.UserID,
			AssetType:             models.AssetType(e.AssetType),
			Symbol:                e.Symbol,
			DisplayName:           e.Name,
			AlertThresholdPercent: threshold,
		})
	}
	return &StaticWatchlist{items: items}
}

func (w *StaticWatchlist) ListAll(context.Context) ([]models.Instrument, error) {
	return append([]models.Instrument(nil), w.items...), nil
}

func (w *StaticWatchlist) ListByUser(_ context.Context, userID string) ([]models.Instrument, error) {
	var out []models.Instrument
	for _, it := range w.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

var _ drepo.InstrumentRegistry = (*StaticWatchlist)(nil)
