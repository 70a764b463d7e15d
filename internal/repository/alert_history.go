package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
)

const (
	defaultHistoryTable = "alert_history"
	historyChunkSize    = 1000
	maxHistoryLimit     = 1000
)

// AlertHistorySchema returns the DDL for the alert history table.
func AlertHistorySchema(table string) []string {
	if table == "" {
		table = defaultHistoryTable
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	ts DateTime64(3, 'UTC'),
	tick_id String,
	id String,
	user_id String,
	asset_type LowCardinality(String),
	symbol LowCardinality(String),
	display_name String,
	price Float64,
	change_pct Float64,
	direction LowCardinality(String),
	message String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (user_id, symbol, ts)
TTL toDateTime(ts) + INTERVAL 90 DAY`, table),
	}
}

// ClickHouseAlertHistory stores dispatched alerts in ClickHouse.
type ClickHouseAlertHistory struct {
	db    *sql.DB
	table string
}

func NewClickHouseAlertHistory(db *sql.DB, table string) *ClickHouseAlertHistory {
	if table == "" {
		table = defaultHistoryTable
	}
	return &ClickHouseAlertHistory{db: db, table: table}
}

func (h *ClickHouseAlertHistory) Init(ctx context.Context) error {
	for _, stmt := range AlertHistorySchema(h.table) {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", h.table, err)
		}
	}
	return nil
}

func (h *ClickHouseAlertHistory) Store(ctx context.Context, records []models.AlertRecord) error {
	for start := 0; start < len(records); start += historyChunkSize {
		end := min(start+historyChunkSize, len(records))

		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*11)
		for _, r := range records[start:end] {
			if r.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.CreatedAt.UTC(),
				r.TickID,
				r.ID,
				r.UserID,
				r.AssetType,
				r.Symbol,
				r.DisplayName,
				r.Price,
				r.ChangePercent,
				r.Direction,
				r.Message,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, tick_id, id, user_id, asset_type, symbol, display_name, price, change_pct, direction, message) VALUES %s",
			h.table, strings.Join(values, ","))
		if _, err := h.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert alert history: %w", err)
		}
	}
	return nil
}

func (h *ClickHouseAlertHistory) Query(ctx context.Context, q drepo.HistoryQuery) ([]models.AlertRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.Symbol != "" {
		where = append(where, "lower(symbol) = ?")
		args = append(args, models.SymbolKey(q.Symbol))
	}
	if !q.From.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, q.To.UTC())
	}

	limit := q.Limit
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	stmt := fmt.Sprintf("SELECT ts, tick_id, id, user_id, asset_type, symbol, display_name, price, change_pct, direction, message FROM %s", h.table)
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query alert history: %w", err)
	}
	defer rows.Close()

	var out []models.AlertRecord
	for rows.Next() {
		var (
			r  models.AlertRecord
			ts time.Time
		)
		if err := rows.Scan(&ts, &r.TickID, &r.ID, &r.UserID, &r.AssetType, &r.Symbol, &r.DisplayName,
			&r.Price, &r.ChangePercent, &r.Direction, &r.Message); err != nil {
			return nil, fmt.Errorf("scan alert history: %w", err)
		}
		r.CreatedAt = ts.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (h *ClickHouseAlertHistory) Close() error {
	return nil // connection owned by pkg/clickhouse.Client
}

// RecordFromNotification flattens a dispatched notification into a history row.
func RecordFromNotification(n models.Notification) models.AlertRecord {
	a := n.Alert
	return models.AlertRecord{
		ID:            n.ID,
		TickID:        n.TickID,
		UserID:        a.UserID,
		AssetType:     string(a.AssetType),
		Symbol:        strings.ToUpper(a.Symbol),
		DisplayName:   a.DisplayName,
		Price:         a.CurrentPrice,
		ChangePercent: a.ChangePercent,
		Direction:     string(a.Direction),
		Message:       a.Message,
		CreatedAt:     a.CreatedAt,
	}
}

// NopAlertHistory is used when ClickHouse is disabled.
type NopAlertHistory struct{}

func (NopAlertHistory) Init(context.Context) error                        { return nil }
func (NopAlertHistory) Store(context.Context, []models.AlertRecord) error { return nil }
func (NopAlertHistory) Query(context.Context, drepo.HistoryQuery) ([]models.AlertRecord, error) {
	return []models.AlertRecord{}, nil
}
func (NopAlertHistory) Close() error { return nil }

var (
	_ drepo.AlertHistory = (*ClickHouseAlertHistory)(nil)
	_ drepo.AlertHistory = NopAlertHistory{}
)
