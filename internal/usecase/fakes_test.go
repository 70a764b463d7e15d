package usecase

import (
	"context"
	"sync"
	"time"

	"PulseWatch/internal/domain/models"
)

type fakeRegistry struct {
	items []models.Instrument
	err   error
}

func (f *fakeRegistry) ListAll(context.Context) ([]models.Instrument, error) {
	return f.items, f.err
}

func (f *fakeRegistry) ListByUser(_ context.Context, userID string) ([]models.Instrument, error) {
	var out []models.Instrument
	for _, it := range f.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, f.err
}

type fakeSource struct {
	snaps map[models.AssetType]map[string]models.PriceSnapshot
	err   error
	fail  map[models.AssetType]error
	calls map[models.AssetType][]string
}

func (f *fakeSource) Snapshots(_ context.Context, t models.AssetType, symbols []string) (map[string]models.PriceSnapshot, error) {
	if f.calls == nil {
		f.calls = map[models.AssetType][]string{}
	}
	f.calls[t] = append(f.calls[t], symbols...)
	if f.err != nil {
		return nil, f.err
	}
	if err := f.fail[t]; err != nil {
		return nil, err
	}
	return f.snaps[t], nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []models.Notification
	fail map[string]error // by tag
}

func (f *fakeDispatcher) Name() string { return "fake" }

func (f *fakeDispatcher) Dispatch(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.fail[n.Tag]
}

type memCooldowns struct {
	last    map[string]time.Time
	marked  []string
	ttl     time.Duration
	readErr error
}

func (m *memCooldowns) LastSent(_ context.Context, keys []string) (map[string]time.Time, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := map[string]time.Time{}
	for _, k := range keys {
		if t, ok := m.last[k]; ok {
			out[k] = t
		}
	}
	return out, nil
}

func (m *memCooldowns) MarkSent(_ context.Context, keys []string, at time.Time, ttl time.Duration) error {
	if m.last == nil {
		m.last = map[string]time.Time{}
	}
	for _, k := range keys {
		m.last[k] = at
	}
	m.marked = append(m.marked, keys...)
	m.ttl = ttl
	return nil
}

type countingMetrics struct {
	mu      sync.Mutex
	ticks   map[string]int
	stages  map[string]int
	errors  map[string]int
	norm    map[string]int
	latency map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		ticks:   map[string]int{},
		stages:  map[string]int{},
		errors:  map[string]int{},
		norm:    map[string]int{},
		latency: map[string]int{},
	}
}

func (c *countingMetrics) RecordTick(outcome string, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks[outcome]++
}

func (c *countingMetrics) RecordAlerts(stage string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[stage] += n
}

func (c *countingMetrics) RecordDispatch(string, error) {}

func (c *countingMetrics) RecordNormalize(outcome, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.norm[outcome+"/"+reason]++
}

func (c *countingMetrics) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[kind]++
}

func (c *countingMetrics) RecordLastPrice(string, float64) {}

func (c *countingMetrics) RecordLatency(op string, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency[op]++
}

func pct(v float64) *float64 { return &v }
