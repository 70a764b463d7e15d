package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
	"PulseWatch/pkg/cache"
	"PulseWatch/pkg/logger"
)

type fakeTopMarkets struct {
	rows  []models.Ticker
	err   error
	calls int
	limit int
}

func (f *fakeTopMarkets) TopMarkets(_ context.Context, limit int) ([]models.Ticker, error) {
	f.calls++
	f.limit = limit
	return f.rows, f.err
}

var topCoins = []models.Ticker{
	{Symbol: "BTC", Name: "Bitcoin", Price: 68000, Change: 1.5, Type: models.AssetCrypto},
	{Symbol: "ETH", Name: "Ethereum", Price: 3000, Change: -0.4, Type: models.AssetCrypto},
}

func stockQuotes() *fakeSource {
	return &fakeSource{snaps: map[models.AssetType]map[string]models.PriceSnapshot{
		models.AssetStock: {
			"aapl": {Symbol: "AAPL", CurrentPrice: 200, ChangePercent: pct(2)},
			"msft": {Symbol: "MSFT", CurrentPrice: 400, ReferencePrice: 500},
		},
	}}
}

func TestMarketTickers_CryptoThenStocks(t *testing.T) {
	coins := &fakeTopMarkets{rows: topCoins}
	stocks := stockQuotes()
	u := NewMarketTickers(coins, stocks, nil, MarketTickersConfig{Stocks: []string{"AAPL", "NOPE", "MSFT"}}, newCountingMetrics(), logger.NewNop())

	got, err := u.Tickers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, coins.limit)
	assert.Equal(t, []string{"AAPL", "NOPE", "MSFT"}, stocks.calls[models.AssetStock])
	require.Len(t, got, 4)
	assert.Equal(t, "BTC", got[0].Symbol)
	assert.Equal(t, models.Ticker{Symbol: "AAPL", Name: "AAPL", Price: 200, Change: 2, Type: models.AssetStock}, got[2])
	assert.Equal(t, "MSFT", got[3].Symbol)
	assert.InDelta(t, -20, got[3].Change, 1e-9)
}

func TestMarketTickers_DefaultStockList(t *testing.T) {
	stocks := stockQuotes()
	u := NewMarketTickers(&fakeTopMarkets{}, stocks, nil, MarketTickersConfig{}, newCountingMetrics(), logger.NewNop())

	_, err := u.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultTickerStocks, stocks.calls[models.AssetStock])
}

func TestMarketTickers_PartialFailure(t *testing.T) {
	m := newCountingMetrics()
	stocks := &fakeSource{err: errors.New("finnhub down")}
	u := NewMarketTickers(&fakeTopMarkets{rows: topCoins}, stocks, nil, MarketTickersConfig{}, m, logger.NewNop())

	got, err := u.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, topCoins, got)
	assert.Equal(t, 1, m.errors["tickers_stock"])
}

func TestMarketTickers_AllSourcesFail(t *testing.T) {
	u := NewMarketTickers(
		&fakeTopMarkets{err: errors.New("coingecko 429")},
		&fakeSource{err: errors.New("finnhub down")},
		nil, MarketTickersConfig{}, newCountingMetrics(), logger.NewNop())

	_, err := u.Tickers(context.Background())
	assert.Error(t, err)
}

func TestMarketTickers_WithoutStockProvider(t *testing.T) {
	u := NewMarketTickers(&fakeTopMarkets{rows: topCoins}, nil, nil, MarketTickersConfig{}, newCountingMetrics(), logger.NewNop())

	got, err := u.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, topCoins, got)
}

func TestMarketTickers_ServedFromCache(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	coins := &fakeTopMarkets{rows: topCoins}
	u := NewMarketTickers(coins, nil, c, MarketTickersConfig{CacheTTL: time.Minute}, newCountingMetrics(), logger.NewNop())

	first, err := u.Tickers(context.Background())
	require.NoError(t, err)
	second, err := u.Tickers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, coins.calls)
}
