package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	domsvc "PulseWatch/internal/domain/service"
	xhttp "PulseWatch/pkg/http"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Client reads crypto prices from the CoinGecko public API. Symbols are
// CoinGecko coin ids ("bitcoin", "matic-network").
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	now     func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sends the demo API key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = xhttp.NewClient(xhttp.WithTimeout(d)) }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type simplePrice struct {
	USD       *float64 `json:"usd"`
	USDChange *float64 `json:"usd_24h_change"`
}

// Snapshots fetches spot price and 24h change for all ids in one call. Ids
// the API does not know are simply missing from the result.
func (c *Client) Snapshots(ctx context.Context, assetType models.AssetType, symbols []string) (map[string]models.PriceSnapshot, error) {
	if assetType != models.AssetCrypto {
		return nil, fmt.Errorf("coingecko: unsupported asset type %q", assetType)
	}
	ids := uniqueKeys(symbols)
	if len(ids) == 0 {
		return map[string]models.PriceSnapshot{}, nil
	}

	var body map[string]simplePrice
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/simple/price",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"ids":                 {strings.Join(ids, ",")},
			"vs_currencies":       {"usd"},
			"include_24hr_change": {"true"},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("coingecko simple price: %w", err)
	}

	observed := c.now()
	out := make(map[string]models.PriceSnapshot, len(body))
	for id, p := range body {
		if p.USD == nil {
			continue
		}
		snap := models.PriceSnapshot{
			Symbol:       id,
			CurrentPrice: *p.USD,
			ObservedAt:   observed,
		}
		if p.USDChange != nil {
			change := *p.USDChange
			snap.ChangePercent = &change
			if change > -100 {
				snap.ReferencePrice = *p.USD / (1 + change/100)
			}
		}
		out[models.SymbolKey(id)] = snap
	}
	return out, nil
}

type usdValue struct {
	USD float64 `json:"usd"`
}

type coinResponse struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice usdValue `json:"current_price"`
		High24h      usdValue `json:"high_24h"`
		Low24h       usdValue `json:"low_24h"`
		MarketCap    usdValue `json:"market_cap"`
		TotalVolume  usdValue `json:"total_volume"`
	} `json:"market_data"`
}

// Anchors fetches the coin detail used to ground chart analysis.
func (c *Client) Anchors(ctx context.Context, assetType models.AssetType, symbol string) (models.Anchors, error) {
	anchors := models.Anchors{Symbol: symbol}
	if assetType != models.AssetCrypto {
		return anchors, fmt.Errorf("coingecko: unsupported asset type %q", assetType)
	}

	var coin coinResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/coins/" + url.PathEscape(models.SymbolKey(symbol)),
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"localization":   {"false"},
			"tickers":        {"false"},
			"community_data": {"false"},
			"developer_data": {"false"},
		},
	}, &coin)
	if err != nil {
		return anchors, fmt.Errorf("coingecko coin %s: %w", symbol, err)
	}

	md := coin.MarketData
	anchors.CurrentPrice = md.CurrentPrice.USD
	anchors.High24h = md.High24h.USD
	anchors.Low24h = md.Low24h.USD
	anchors.MarketCap = md.MarketCap.USD
	anchors.Volume24h = md.TotalVolume.USD
	return anchors, nil
}

type marketRow struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	CurrentPrice  float64  `json:"current_price"`
	PriceChange24 *float64 `json:"price_change_percentage_24h"`
}

// TopMarkets lists the largest coins by market cap.
func (c *Client) TopMarkets(ctx context.Context, limit int) ([]models.Ticker, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []marketRow
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/coins/markets",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"order":       {"market_cap_desc"},
			"per_page":    {strconv.Itoa(limit)},
			"page":        {"1"},
			"sparkline":   {"false"},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("coingecko markets: %w", err)
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.Ticker, 0, len(rows))
	for _, r := range rows {
		t := models.Ticker{
			Symbol: strings.ToUpper(r.Symbol),
			Name:   r.Name,
			Price:  r.CurrentPrice,
			Type:   models.AssetCrypto,
		}
		if r.PriceChange24 != nil {
			t.Change = *r.PriceChange24
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"x-cg-demo-api-key": c.apiKey}
}

func uniqueKeys(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		k := models.SymbolKey(s)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

var (
	_ drepo.SnapshotSource = (*Client)(nil)
	_ domsvc.AnchorSource  = (*Client)(nil)
)
