package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
)

type stubProvider struct {
	snaps map[string]models.PriceSnapshot
}

func (s *stubProvider) Snapshots(context.Context, models.AssetType, []string) (map[string]models.PriceSnapshot, error) {
	return s.snaps, nil
}

func (s *stubProvider) Anchors(_ context.Context, _ models.AssetType, symbol string) (models.Anchors, error) {
	return models.Anchors{Symbol: symbol, CurrentPrice: 1}, nil
}

type listingProvider struct {
	stubProvider
}

func (l *listingProvider) TopMarkets(_ context.Context, limit int) ([]models.Ticker, error) {
	return []models.Ticker{{Symbol: "BTC", Type: models.AssetCrypto}}[:min(limit, 1)], nil
}

func TestRouter_RoutesByAssetType(t *testing.T) {
	stock := &stubProvider{snaps: map[string]models.PriceSnapshot{"aapl": {Symbol: "AAPL"}}}
	r := NewRouter(&listingProvider{}, stock)

	assert.True(t, r.Supports(models.AssetStock))
	got, err := r.Snapshots(context.Background(), models.AssetStock, []string{"AAPL"})
	require.NoError(t, err)
	assert.Contains(t, got, "aapl")

	tickers, err := r.TopMarkets(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, tickers, 1)
}

func TestRouter_MissingProvider(t *testing.T) {
	r := NewRouter(&stubProvider{}, nil)

	assert.False(t, r.Supports(models.AssetStock))
	_, err := r.Snapshots(context.Background(), models.AssetStock, []string{"AAPL"})
	assert.Error(t, err)

	_, err = r.TopMarkets(context.Background(), 5)
	assert.Error(t, err, "crypto provider cannot list markets")
}
