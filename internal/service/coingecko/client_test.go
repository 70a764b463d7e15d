package coingecko

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
)

func TestSnapshots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum,nosuchcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":68000,"usd_24h_change":3.2},"ethereum":{"usd":3000}}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithAPIKey("demo-key"))
	got, err := c.Snapshots(t.Context(), models.AssetCrypto, []string{"bitcoin", "Ethereum", "bitcoin", "nosuchcoin"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	btc := got["bitcoin"]
	require.NotNil(t, btc.ChangePercent)
	assert.Equal(t, 3.2, *btc.ChangePercent)
	assert.Equal(t, float64(68000), btc.CurrentPrice)
	assert.InDelta(t, 65891.47, btc.ReferencePrice, 0.01)

	eth := got["ethereum"]
	assert.Nil(t, eth.ChangePercent)
	assert.Equal(t, float64(0), eth.Change())
}

func TestSnapshots_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithTimeout(time.Second))
	_, err := c.Snapshots(t.Context(), models.AssetCrypto, []string{"bitcoin"})
	assert.Error(t, err)

	_, err = c.Snapshots(t.Context(), models.AssetStock, []string{"AAPL"})
	assert.Error(t, err)
}

func TestAnchors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("tickers"))
		_, _ = w.Write([]byte(`{"id":"bitcoin","market_data":{
			"current_price":{"usd":68000},"high_24h":{"usd":69000},"low_24h":{"usd":66000},
			"market_cap":{"usd":1340000000000},"total_volume":{"usd":25000000000}}}`))
	}))
	defer srv.Close()

	a, err := New(WithBaseURL(srv.URL)).Anchors(t.Context(), models.AssetCrypto, "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, models.Anchors{
		Symbol:       "bitcoin",
		CurrentPrice: 68000,
		High24h:      69000,
		Low24h:       66000,
		MarketCap:    1.34e12,
		Volume24h:    2.5e10,
	}, a)
}

func TestTopMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "market_cap_desc", r.URL.Query().Get("order"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":68000,"price_change_percentage_24h":1.5},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3000,"price_change_percentage_24h":null},
			{"id":"tether","symbol":"usdt","name":"Tether","current_price":1}]`))
	}))
	defer srv.Close()

	got, err := New(WithBaseURL(srv.URL)).TopMarkets(t.Context(), 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Ticker{
		{Symbol: "BTC", Name: "Bitcoin", Price: 68000, Change: 1.5, Type: models.AssetCrypto},
		{Symbol: "ETH", Name: "Ethereum", Price: 3000, Type: models.AssetCrypto},
	}, got)
}
