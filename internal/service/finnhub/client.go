package finnhub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	domsvc "PulseWatch/internal/domain/service"
	xhttp "PulseWatch/pkg/http"
	"PulseWatch/pkg/logger"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

// ErrUnknownSymbol is returned when Finnhub answers with an all-zero quote.
var ErrUnknownSymbol = errors.New("finnhub: unknown symbol")

// Client reads stock quotes from the Finnhub REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	log     *logger.Logger
}

func New(apiKey, baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:     log,
	}
}

// Quote mirrors the /quote response.
type Quote struct {
	Current       float64  `json:"c"`
	Change        *float64 `json:"d"`
	ChangePercent *float64 `json:"dp"`
	High          float64  `json:"h"`
	Low           float64  `json:"l"`
	Open          float64  `json:"o"`
	PrevClose     float64  `json:"pc"`
	Timestamp     int64    `json:"t"`
}

func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	var q Quote
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/quote",
		Headers:     map[string]string{"X-Finnhub-Token": c.apiKey},
		QueryParams: map[string][]string{"symbol": {strings.ToUpper(symbol)}},
	}, &q)
	if err != nil {
		return q, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	if q.Current == 0 && q.PrevClose == 0 {
		return q, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	return q, nil
}

// Snapshots quotes each symbol in turn. Individual failures are logged and
// left out; the call only fails when every symbol failed.
func (c *Client) Snapshots(ctx context.Context, assetType models.AssetType, symbols []string) (map[string]models.PriceSnapshot, error) {
	if assetType != models.AssetStock {
		return nil, fmt.Errorf("finnhub: unsupported asset type %q", assetType)
	}

	out := make(map[string]models.PriceSnapshot, len(symbols))
	var lastErr error
	for _, s := range symbols {
		key := models.SymbolKey(s)
		if _, done := out[key]; done || key == "" {
			continue
		}

		q, err := c.Quote(ctx, s)
		if err != nil {
			lastErr = err
			c.log.Warn("finnhub quote failed", logger.String("symbol", s), logger.Error(err))
			continue
		}

		snap := models.PriceSnapshot{
			Symbol:         s,
			CurrentPrice:   q.Current,
			ReferencePrice: q.PrevClose,
			ChangePercent:  q.ChangePercent,
			ObservedAt:     time.Now(),
		}
		if q.Timestamp > 0 {
			snap.ObservedAt = time.Unix(q.Timestamp, 0)
		}
		out[key] = snap
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// Anchors uses the day's quote as the trusted market values for a stock.
func (c *Client) Anchors(ctx context.Context, assetType models.AssetType, symbol string) (models.Anchors, error) {
	anchors := models.Anchors{Symbol: symbol}
	if assetType != models.AssetStock {
		return anchors, fmt.Errorf("finnhub: unsupported asset type %q", assetType)
	}

	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return anchors, err
	}
	anchors.CurrentPrice = q.Current
	anchors.High24h = q.High
	anchors.Low24h = q.Low
	return anchors, nil
}

var (
	_ drepo.SnapshotSource = (*Client)(nil)
	_ domsvc.AnchorSource  = (*Client)(nil)
)
