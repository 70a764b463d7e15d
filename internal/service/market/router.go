package market

import (
	"context"
	"fmt"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	domsvc "PulseWatch/internal/domain/service"
)

// Provider is a price feed that can serve both snapshots and anchors.
type Provider interface {
	drepo.SnapshotSource
	domsvc.AnchorSource
}

// Router sends each asset type to the provider registered for it.
type Router struct {
	providers map[models.AssetType]Provider
}

func NewRouter(crypto, stock Provider) *Router {
	r := &Router{providers: make(map[models.AssetType]Provider, 2)}
	if crypto != nil {
		r.providers[models.AssetCrypto] = crypto
	}
	if stock != nil {
		r.providers[models.AssetStock] = stock
	}
	return r
}

func (r *Router) provider(t models.AssetType) (Provider, error) {
	p, ok := r.providers[t]
	if !ok {
		return nil, fmt.Errorf("no price provider for asset type %q", t)
	}
	return p, nil
}

func (r *Router) Snapshots(ctx context.Context, assetType models.AssetType, symbols []string) (map[string]models.PriceSnapshot, error) {
	p, err := r.provider(assetType)
	if err != nil {
		return nil, err
	}
	return p.Snapshots(ctx, assetType, symbols)
}

func (r *Router) Anchors(ctx context.Context, assetType models.AssetType, symbol string) (models.Anchors, error) {
	p, err := r.provider(assetType)
	if err != nil {
		return models.Anchors{Symbol: symbol}, err
	}
	return p.Anchors(ctx, assetType, symbol)
}

// Supports reports whether a provider is registered for t.
func (r *Router) Supports(t models.AssetType) bool {
	_, ok := r.providers[t]
	return ok
}

type topMarkets interface {
	TopMarkets(ctx context.Context, limit int) ([]models.Ticker, error)
}

// TopMarkets asks the crypto provider for its market-cap leaders.
func (r *Router) TopMarkets(ctx context.Context, limit int) ([]models.Ticker, error) {
	p, err := r.provider(models.AssetCrypto)
	if err != nil {
		return nil, err
	}
	tm, ok := p.(topMarkets)
	if !ok {
		return nil, fmt.Errorf("crypto provider does not list markets")
	}
	return tm.TopMarkets(ctx, limit)
}

var _ Provider = (*Router)(nil)
