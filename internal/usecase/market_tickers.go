package usecase

import (
	"context"
	"errors"
	"time"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	"PulseWatch/pkg/cache"
	"PulseWatch/pkg/logger"
)

const tickersCacheKey = "market:tickers"

// DefaultTickerStocks are quoted when no stock list is configured.
var DefaultTickerStocks = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "JPM", "V", "WMT"}

// TopMarketSource lists the leading crypto assets by market cap.
type TopMarketSource interface {
	TopMarkets(ctx context.Context, limit int) ([]models.Ticker, error)
}

type MarketTickersConfig struct {
	CryptoLimit int
	Stocks      []string
	CacheTTL    time.Duration
}

// MarketTickers builds the headline strip: top coins followed by a fixed
// stock list, or coins only when no stock provider is set. Results are shared through the cache so polling clients do not
// hit the upstream APIs on every request.
type MarketTickers struct {
	crypto  TopMarketSource
	stocks  drepo.SnapshotSource
	cache   cache.Service
	cfg     MarketTickersConfig
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewMarketTickers(crypto TopMarketSource, stocks drepo.SnapshotSource, c cache.Service, cfg MarketTickersConfig, metrics drepo.Metrics, log *logger.Logger) *MarketTickers {
	if cfg.CryptoLimit <= 0 {
		cfg.CryptoLimit = 10
	}
	if len(cfg.Stocks) == 0 {
		cfg.Stocks = DefaultTickerStocks
	}
	return &MarketTickers{crypto: crypto, stocks: stocks, cache: c, cfg: cfg, metrics: metrics, log: log}
}

// Tickers fails only when neither crypto nor stock quotes could be fetched.
func (u *MarketTickers) Tickers(ctx context.Context) ([]models.Ticker, error) {
	if u.cache != nil {
		var cached []models.Ticker
		err := u.cache.Get(ctx, tickersCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			u.log.Debug("ticker cache read failed", logger.Error(err))
		}
	}

	coins, cryptoErr := u.crypto.TopMarkets(ctx, u.cfg.CryptoLimit)
	if cryptoErr != nil {
		u.metrics.RecordError("tickers_crypto")
		u.log.Warn("crypto tickers unavailable", logger.Error(cryptoErr))
	}

	stocks, stockErr := u.stockTickers(ctx)
	if stockErr != nil {
		u.metrics.RecordError("tickers_stock")
		u.log.Warn("stock tickers unavailable", logger.Error(stockErr))
	}

	if cryptoErr != nil && stockErr != nil {
		return nil, errors.Join(cryptoErr, stockErr)
	}

	out := make([]models.Ticker, 0, len(coins)+len(stocks))
	out = append(out, coins...)
	out = append(out, stocks...)

	if u.cache != nil && u.cfg.CacheTTL > 0 && cryptoErr == nil && stockErr == nil {
		if err := u.cache.Set(ctx, tickersCacheKey, out, u.cfg.CacheTTL); err != nil {
			u.log.Debug("ticker cache write failed", logger.Error(err))
		}
	}
	return out, nil
}

func (u *MarketTickers) stockTickers(ctx context.Context) ([]models.Ticker, error) {
	if u.stocks == nil {
		return nil, nil
	}
	snaps, err := u.stocks.Snapshots(ctx, models.AssetStock, u.cfg.Stocks)
	if err != nil {
		return nil, err
	}

	out := make([]models.Ticker, 0, len(snaps))
	for _, sym := range u.cfg.Stocks {
		snap, ok := snaps[models.SymbolKey(sym)]
		if !ok {
			continue
		}
		out = append(out, models.Ticker{
			Symbol: sym,
			Name:   sym,
			Price:  snap.CurrentPrice,
			Change: snap.Change(),
			Type:   models.AssetStock,
		})
	}
	return out, nil
}
