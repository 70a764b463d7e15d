package models

import (
	"strings"
	"time"
)

type AssetType string

const (
	AssetCrypto AssetType = "crypto"
	AssetStock  AssetType = "stock"
)

func (a AssetType) Valid() bool {
	return a == AssetCrypto || a == AssetStock
}

// DefaultAlertThreshold is applied by registry adapters when a watchlist row
// carries no threshold of its own.
const DefaultAlertThreshold = 2.0

// Instrument is one watchlist row: a user watching a symbol with a threshold.
type Instrument struct {
	UserID                string    `json:"userId"`
	AssetType             AssetType `json:"assetType"`
	Symbol                string    `json:"symbol"`
	DisplayName           string    `json:"displayName"`
	AlertThresholdPercent float64   `json:"alertThresholdPercent"`
}

// Label is the name shown to users, falling back to the symbol.
func (i Instrument) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return strings.ToUpper(i.Symbol)
}

// PriceSnapshot is a point-in-time reading for a symbol. ChangePercent is nil
// when the source did not supply it.
type PriceSnapshot struct {
	Symbol         string    `json:"symbol"`
	CurrentPrice   float64   `json:"currentPrice"`
	ReferencePrice float64   `json:"referencePrice"`
	ChangePercent  *float64  `json:"changePercent,omitempty"`
	ObservedAt     time.Time `json:"observedAt"`
}

// Change returns the supplied change percent, or derives it from the
// reference price.
func (s PriceSnapshot) Change() float64 {
	if s.ChangePercent != nil {
		return *s.ChangePercent
	}
	if s.ReferencePrice == 0 {
		return 0
	}
	return (s.CurrentPrice - s.ReferencePrice) / s.ReferencePrice * 100
}

// SymbolKey normalizes a symbol for map lookups.
func SymbolKey(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// Ticker is one row of the market strip: a headline asset with its 24h move.
type Ticker struct {
	Symbol string    `json:"symbol"`
	Name   string    `json:"name"`
	Price  float64   `json:"price"`
	Change float64   `json:"change"`
	Type   AssetType `json:"type"`
}
