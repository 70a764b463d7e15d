package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
)

// Querier is the subset of pgxpool.Pool the registry needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const watchlistColumns = `user_id::text, asset_type, symbol, COALESCE(name, ''), alert_threshold::float8`

// PostgresWatchlist reads instruments from the watchlist table.
type PostgresWatchlist struct {
	db               Querier
	defaultThreshold float64
}

func NewPostgresWatchlist(db Querier, defaultThreshold float64) *PostgresWatchlist {
	if defaultThreshold <= 0 {
		defaultThreshold = models.DefaultAlertThreshold
	}
	return &PostgresWatchlist{db: db, defaultThreshold: defaultThreshold}
}

func (w *PostgresWatchlist) ListAll(ctx context.Context) ([]models.Instrument, error) {
	rows, err := w.db.Query(ctx, `SELECT `+watchlistColumns+` FROM watchlist ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	return w.scan(rows)
}

func (w *PostgresWatchlist) ListByUser(ctx context.Context, userID string) ([]models.Instrument, error) {
	rows, err := w.db.Query(ctx, `SELECT `+watchlistColumns+` FROM watchlist WHERE user_id::text = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query watchlist for %s: %w", userID, err)
	}
	return w.scan(rows)
}

func (w *PostgresWatchlist) scan(rows pgx.Rows) ([]models.Instrument, error) {
	defer rows.Close()

	var out []models.Instrument
	for rows.Next() {
		var (
			inst      models.Instrument
			assetType string
			threshold *float64
		)
		if err := rows.Scan(&inst.UserID, &assetType, &inst.Symbol, &inst.DisplayName, &threshold); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		inst.AssetType = models.AssetType(assetType)
		// NULL or zero means "use the default"; negatives are passed through
		// so the evaluator reports them.
		inst.AlertThresholdPercent = w.defaultThreshold
		if threshold != nil && *threshold != 0 {
			inst.AlertThresholdPercent = *threshold
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist: %w", err)
	}
	return out, nil
}

var _ drepo.InstrumentRegistry = (*PostgresWatchlist)(nil)
