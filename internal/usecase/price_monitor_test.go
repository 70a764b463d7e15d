package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
	"PulseWatch/pkg/logger"
)

var tickTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestMonitor(reg *fakeRegistry, src *fakeSource, disp *fakeDispatcher, cd *memCooldowns, m *countingMetrics, cooldown time.Duration) *PriceMonitor {
	pm := NewPriceMonitor(reg, src, disp, cd, m, logger.NewNop(), MonitorConfig{Cooldown: cooldown})
	pm.now = func() time.Time { return tickTime }
	n := 0
	pm.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return pm
}

func watchlist() []models.Instrument {
	return []models.Instrument{
		{UserID: "u1", AssetType: models.AssetCrypto, Symbol: "bitcoin", AlertThresholdPercent: 2},
		{UserID: "u1", AssetType: models.AssetStock, Symbol: "AAPL", DisplayName: "Apple", AlertThresholdPercent: 2},
		{UserID: "u2", AssetType: models.AssetCrypto, Symbol: "ethereum", AlertThresholdPercent: 5},
		{UserID: "u2", AssetType: models.AssetCrypto, Symbol: "Bitcoin", AlertThresholdPercent: 1},
	}
}

func snapshots() map[models.AssetType]map[string]models.PriceSnapshot {
	return map[models.AssetType]map[string]models.PriceSnapshot{
		models.AssetCrypto: {
			"bitcoin":  {Symbol: "bitcoin", CurrentPrice: 68000, ChangePercent: pct(3.24)},
			"ethereum": {Symbol: "ethereum", CurrentPrice: 3000, ChangePercent: pct(-4.9)},
		},
		models.AssetStock: {
			"aapl": {Symbol: "AAPL", CurrentPrice: 180, ReferencePrice: 190},
		},
	}
}

func TestRunTick_EvaluatesInRegistryOrder(t *testing.T) {
	src := &fakeSource{snaps: snapshots()}
	disp := &fakeDispatcher{}
	cd := &memCooldowns{}
	m := newCountingMetrics()

	report := newTestMonitor(&fakeRegistry{items: watchlist()}, src, disp, cd, m, 10*time.Minute).RunTick(context.Background())

	assert.False(t, report.Aborted)
	assert.Equal(t, "id-1", report.TickID)
	assert.Equal(t, 4, report.Monitored)
	assert.Equal(t, 4, report.Evaluated)
	assert.Equal(t, 3, report.Alerts)
	assert.Equal(t, 3, report.Dispatched)

	assert.Equal(t, []string{"bitcoin", "ethereum"}, src.calls[models.AssetCrypto])
	assert.Equal(t, []string{"AAPL"}, src.calls[models.AssetStock])

	require.Len(t, disp.sent, 3)
	assert.Equal(t, "🚀 BITCOIN Price Alert", disp.sent[0].Title)
	assert.Equal(t, "BITCOIN is up 3.2%! Now $68,000", disp.sent[0].Body)
	assert.Equal(t, "📉 AAPL Price Alert", disp.sent[1].Title)
	assert.Equal(t, "Apple dropped 5.3%! Now $180", disp.sent[1].Body)
	assert.Equal(t, "u2", disp.sent[2].UserID)
	assert.Equal(t, "BITCOIN", disp.sent[2].Tag)
	assert.Equal(t, "id-1", disp.sent[0].TickID)
	assert.Equal(t, "id-2", disp.sent[0].ID)
	assert.Equal(t, tickTime, disp.sent[0].Alert.CreatedAt)

	assert.Equal(t, []string{"u1:bitcoin", "u1:aapl", "u2:bitcoin"}, cd.marked)
	assert.Equal(t, 10*time.Minute, cd.ttl)
	assert.Equal(t, 1, m.ticks["ok"])
	assert.Equal(t, 3, m.stages["dispatched"])
}

func TestRunTick_CooldownSuppresses(t *testing.T) {
	disp := &fakeDispatcher{}
	cd := &memCooldowns{last: map[string]time.Time{
		"u1:bitcoin": tickTime.Add(-5 * time.Minute),
		"u1:aapl":    tickTime.Add(-10 * time.Minute),
	}}

	report := newTestMonitor(&fakeRegistry{items: watchlist()}, &fakeSource{snaps: snapshots()}, disp, cd, newCountingMetrics(), 10*time.Minute).
		RunTick(context.Background())

	assert.Equal(t, 3, report.Alerts)
	assert.Equal(t, 1, report.Suppressed)
	assert.Equal(t, 2, report.Dispatched)
	require.Len(t, report.Sent, 2)
	assert.Equal(t, "AAPL", report.Sent[0].Symbol)
	assert.Equal(t, []string{"u1:aapl", "u2:bitcoin"}, cd.marked)
}

func TestRunTick_ZeroCooldownForwardsEverything(t *testing.T) {
	disp := &fakeDispatcher{}
	cd := &memCooldowns{last: map[string]time.Time{"u1:bitcoin": tickTime}}

	report := newTestMonitor(&fakeRegistry{items: watchlist()}, &fakeSource{snaps: snapshots()}, disp, cd, newCountingMetrics(), 0).
		RunTick(context.Background())

	assert.Equal(t, 3, report.Dispatched)
	assert.Empty(t, cd.marked)
}

func TestRunTick_SnapshotFailureAborts(t *testing.T) {
	disp := &fakeDispatcher{}
	m := newCountingMetrics()

	report := newTestMonitor(&fakeRegistry{items: watchlist()}, &fakeSource{err: errors.New("429 too many requests")}, disp, &memCooldowns{}, m, time.Minute).
		RunTick(context.Background())

	assert.True(t, report.Aborted)
	assert.Contains(t, report.Reason, "snapshot")
	assert.Empty(t, disp.sent)
	assert.Equal(t, 1, m.ticks["aborted"])
	assert.Equal(t, 1, m.errors["snapshot"])
}

func TestRunTick_PartialSnapshotFailure(t *testing.T) {
	disp := &fakeDispatcher{}
	m := newCountingMetrics()
	src := &fakeSource{snaps: snapshots(), fail: map[models.AssetType]error{
		models.AssetStock: errors.New("finnhub: 401"),
	}}

	report := newTestMonitor(&fakeRegistry{items: watchlist()}, src, disp, &memCooldowns{}, m, time.Minute).
		RunTick(context.Background())

	assert.False(t, report.Aborted)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Dispatched)
	for _, n := range disp.sent {
		assert.NotEqual(t, "AAPL", n.Tag)
	}
	assert.Equal(t, 1, m.errors["snapshot_partial"])
	assert.Equal(t, 1, m.ticks["ok"])
}

func TestRunTick_RegistryFailureAborts(t *testing.T) {
	src := &fakeSource{}
	report := newTestMonitor(&fakeRegistry{err: errors.New("db down")}, src, &fakeDispatcher{}, &memCooldowns{}, newCountingMetrics(), time.Minute).
		RunTick(context.Background())

	assert.True(t, report.Aborted)
	assert.Contains(t, report.Reason, "registry")
	assert.Nil(t, src.calls)
}

func TestRunTick_SkipsInvalidAndMissing(t *testing.T) {
	items := []models.Instrument{
		{UserID: "u1", AssetType: models.AssetCrypto, Symbol: "bitcoin", AlertThresholdPercent: 0},
		{UserID: "u1", AssetType: models.AssetCrypto, Symbol: "dogecoin", AlertThresholdPercent: 2},
		{UserID: "u1", AssetType: "forex", Symbol: "EURUSD", AlertThresholdPercent: 2},
		{UserID: "u1", AssetType: models.AssetCrypto, Symbol: "ethereum", AlertThresholdPercent: 4},
	}
	disp := &fakeDispatcher{}
	m := newCountingMetrics()

	report := newTestMonitor(&fakeRegistry{items: items}, &fakeSource{snaps: snapshots()}, disp, &memCooldowns{}, m, time.Minute).
		RunTick(context.Background())

	assert.False(t, report.Aborted)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 1, report.Evaluated)
	require.Len(t, disp.sent, 1)
	assert.Equal(t, "ETHEREUM", disp.sent[0].Tag)
	assert.Equal(t, 1, m.errors["invalid_threshold"])
}

func TestRunTick_DispatchFailureStillMarksSent(t *testing.T) {
	disp := &fakeDispatcher{fail: map[string]error{"AAPL": errors.New("push rejected")}}
	cd := &memCooldowns{}

	report := newTestMonitor(&fakeRegistry{items: watchlist()}, &fakeSource{snaps: snapshots()}, disp, cd, newCountingMetrics(), time.Minute).
		RunTick(context.Background())

	assert.Equal(t, 2, report.Dispatched)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, disp.sent, 3)
	assert.Contains(t, cd.marked, "u1:aapl")

	require.Len(t, report.Sent, report.Dispatched)
	for _, a := range report.Sent {
		assert.NotEqual(t, "AAPL", a.Symbol)
	}
}

func TestRunTick_CooldownReadFailureFailsOpen(t *testing.T) {
	items := []models.Instrument{
		{UserID: "u1", AssetType: models.AssetCrypto, Symbol: "bitcoin", AlertThresholdPercent: 2},
		{UserID: "u1", AssetType: models.AssetCrypto, Symbol: "BITCOIN", AlertThresholdPercent: 2},
	}
	disp := &fakeDispatcher{}
	m := newCountingMetrics()

	report := newTestMonitor(&fakeRegistry{items: items}, &fakeSource{snaps: snapshots()}, disp, &memCooldowns{readErr: errors.New("redis down")}, m, time.Minute).
		RunTick(context.Background())

	assert.Equal(t, 2, report.Alerts)
	assert.Equal(t, 1, report.Suppressed)
	assert.Len(t, disp.sent, 1)
	assert.Equal(t, 1, m.errors["cooldown_read"])
}

func TestRunTick_EmptyWatchlist(t *testing.T) {
	src := &fakeSource{}
	report := newTestMonitor(&fakeRegistry{}, src, &fakeDispatcher{}, &memCooldowns{}, newCountingMetrics(), time.Minute).
		RunTick(context.Background())

	assert.False(t, report.Aborted)
	assert.Zero(t, report.Monitored)
	assert.Nil(t, src.calls)
	assert.NotNil(t, report.Sent)
}
