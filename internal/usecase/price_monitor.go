package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	"PulseWatch/internal/services/alerting"
	"PulseWatch/pkg/logger"
)

type MonitorConfig struct {
	// Cooldown is the minimum gap between two alerts for one (user, symbol).
	// Zero disables cross-tick suppression.
	Cooldown        time.Duration
	DispatchTimeout time.Duration
}

// PriceMonitor runs one evaluation pass over the whole watchlist.
type PriceMonitor struct {
	registry   drepo.InstrumentRegistry
	source     drepo.SnapshotSource
	dispatcher drepo.Dispatcher
	cooldowns  drepo.CooldownStore
	metrics    drepo.Metrics
	log        *logger.Logger
	cfg        MonitorConfig

	now   func() time.Time
	newID func() string
}

func NewPriceMonitor(
	registry drepo.InstrumentRegistry,
	source drepo.SnapshotSource,
	dispatcher drepo.Dispatcher,
	cooldowns drepo.CooldownStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg MonitorConfig,
) *PriceMonitor {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 10 * time.Second
	}
	return &PriceMonitor{
		registry:   registry,
		source:     source,
		dispatcher: dispatcher,
		cooldowns:  cooldowns,
		metrics:    metrics,
		log:        log,
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// RunTick fetches the watchlist and prices, evaluates every instrument in
// registry order, drops alerts still in cooldown and dispatches the rest.
// A registry or snapshot failure aborts the tick before anything is sent.
func (m *PriceMonitor) RunTick(ctx context.Context) models.TickReport {
	start := m.now()
	report := models.TickReport{TickID: m.newID(), StartedAt: start, Sent: []models.Alert{}}
	log := m.log.With(logger.String("tick_id", report.TickID))

	defer func() {
		report.Duration = m.now().Sub(start)
		outcome := "ok"
		if report.Aborted {
			outcome = "aborted"
		}
		m.metrics.RecordTick(outcome, report.Duration.Seconds())
		m.metrics.RecordAlerts("evaluated", report.Alerts)
		m.metrics.RecordAlerts("suppressed", report.Suppressed)
		m.metrics.RecordAlerts("dispatched", report.Dispatched)
		m.metrics.RecordAlerts("failed", report.Failed)
	}()

	instruments, err := m.registry.ListAll(ctx)
	if err != nil {
		m.metrics.RecordError("registry")
		log.Error("monitor tick aborted: watchlist unavailable", logger.Error(err))
		report.Aborted, report.Reason = true, "registry: "+err.Error()
		return report
	}
	report.Monitored = len(instruments)
	if len(instruments) == 0 {
		return report
	}

	snapshots, err := m.fetchSnapshots(ctx, log, instruments)
	if err != nil {
		m.metrics.RecordError("snapshot")
		log.Error("monitor tick aborted: price snapshot failed", logger.Error(err))
		report.Aborted, report.Reason = true, "snapshot: "+err.Error()
		return report
	}

	alerts := m.evaluate(log, instruments, snapshots, start, &report)
	report.Alerts = len(alerts)
	if len(alerts) == 0 {
		log.Debug("monitor tick finished without alerts", logger.Int("evaluated", report.Evaluated))
		return report
	}

	accepted := alerting.Dedupe(alerts, m.lastSent(ctx, log, alerts), start, m.cfg.Cooldown)
	report.Suppressed = len(alerts) - len(accepted)

	for _, a := range accepted {
		n := alerting.Format(a)
		n.ID = m.newID()
		n.TickID = report.TickID
		if err := m.dispatch(ctx, n); err != nil {
			report.Failed++
			log.Warn("alert dispatch failed",
				logger.String("user_id", a.UserID),
				logger.String("symbol", a.Symbol),
				logger.Error(err))
			continue
		}
		report.Dispatched++
		report.Sent = append(report.Sent, a)
	}

	m.markSent(ctx, log, accepted, start)

	log.Info("monitor tick finished",
		logger.Int("monitored", report.Monitored),
		logger.Int("evaluated", report.Evaluated),
		logger.Int("alerts", report.Alerts),
		logger.Int("suppressed", report.Suppressed),
		logger.Int("dispatched", report.Dispatched),
		logger.Int("failed", report.Failed))
	return report
}

// fetchSnapshots issues one batch request per asset type. Symbols are
// de-duplicated case-insensitively. It fails only when every request failed;
// instruments of a failed type are skipped later for lack of a snapshot.
func (m *PriceMonitor) fetchSnapshots(ctx context.Context, log *logger.Logger, instruments []models.Instrument) (map[models.AssetType]map[string]models.PriceSnapshot, error) {
	var order []models.AssetType
	symbols := make(map[models.AssetType][]string)
	seen := make(map[string]struct{})

	for _, inst := range instruments {
		if !inst.AssetType.Valid() {
			continue
		}
		key := string(inst.AssetType) + "/" + models.SymbolKey(inst.Symbol)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := symbols[inst.AssetType]; !ok {
			order = append(order, inst.AssetType)
		}
		symbols[inst.AssetType] = append(symbols[inst.AssetType], inst.Symbol)
	}

	out := make(map[models.AssetType]map[string]models.PriceSnapshot, len(order))
	var errs []error
	for _, t := range order {
		began := m.now()
		snaps, err := m.source.Snapshots(ctx, t, symbols[t])
		m.metrics.RecordLatency("snapshot_"+string(t), m.now().Sub(began).Seconds())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		for _, s := range snaps {
			m.metrics.RecordLastPrice(s.Symbol, s.CurrentPrice)
		}
		out[t] = snaps
	}

	switch {
	case len(errs) > 0 && len(out) == 0:
		return nil, errors.Join(errs...)
	case len(errs) > 0:
		m.metrics.RecordError("snapshot_partial")
		log.Warn("price snapshot failed for some asset types", logger.Error(errors.Join(errs...)))
	}
	return out, nil
}

func (m *PriceMonitor) evaluate(
	log *logger.Logger,
	instruments []models.Instrument,
	snapshots map[models.AssetType]map[string]models.PriceSnapshot,
	at time.Time,
	report *models.TickReport,
) []models.Alert {
	var alerts []models.Alert
	for _, inst := range instruments {
		if !inst.AssetType.Valid() {
			report.Skipped++
			log.Warn("skipping instrument with unknown asset type",
				logger.String("user_id", inst.UserID),
				logger.String("symbol", inst.Symbol),
				logger.String("asset_type", string(inst.AssetType)))
			continue
		}

		var snap *models.PriceSnapshot
		if s, ok := snapshots[inst.AssetType][models.SymbolKey(inst.Symbol)]; ok {
			snap = &s
		}

		alert, err := alerting.Evaluate(inst, snap)
		switch {
		case errors.Is(err, alerting.ErrInvalidThreshold):
			report.Skipped++
			m.metrics.RecordError("invalid_threshold")
			log.Warn("skipping instrument with invalid threshold",
				logger.String("user_id", inst.UserID),
				logger.String("symbol", inst.Symbol),
				logger.Float64("threshold", inst.AlertThresholdPercent))
			continue
		case err != nil:
			report.Skipped++
			m.metrics.RecordError("evaluate")
			log.Warn("skipping instrument", logger.String("symbol", inst.Symbol), logger.Error(err))
			continue
		case snap == nil:
			report.Skipped++
			continue
		}

		report.Evaluated++
		if alert != nil {
			alert.CreatedAt = at
			alerts = append(alerts, *alert)
		}
	}
	return alerts
}

// lastSent fails open: without cooldown data only in-batch repeats are
// collapsed.
func (m *PriceMonitor) lastSent(ctx context.Context, log *logger.Logger, alerts []models.Alert) map[string]time.Time {
	if m.cfg.Cooldown <= 0 {
		return nil
	}
	keys := make([]string, len(alerts))
	for i, a := range alerts {
		keys[i] = a.CooldownKey()
	}
	last, err := m.cooldowns.LastSent(ctx, keys)
	if err != nil {
		m.metrics.RecordError("cooldown_read")
		log.Warn("cooldown lookup failed", logger.Error(err))
		return nil
	}
	return last
}

func (m *PriceMonitor) markSent(ctx context.Context, log *logger.Logger, accepted []models.Alert, at time.Time) {
	if m.cfg.Cooldown <= 0 || len(accepted) == 0 {
		return
	}
	keys := make([]string, len(accepted))
	for i, a := range accepted {
		keys[i] = a.CooldownKey()
	}
	if err := m.cooldowns.MarkSent(ctx, keys, at, m.cfg.Cooldown); err != nil {
		m.metrics.RecordError("cooldown_write")
		log.Warn("cooldown update failed", logger.Error(err))
	}
}

func (m *PriceMonitor) dispatch(ctx context.Context, n models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.DispatchTimeout)
	defer cancel()
	return m.dispatcher.Dispatch(ctx, n)
}
