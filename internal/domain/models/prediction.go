package models

import "strings"

type Signal string

const (
	SignalStrongSell Signal = "strong_sell"
	SignalSell       Signal = "sell"
	SignalNeutral    Signal = "neutral"
	SignalBuy        Signal = "buy"
	SignalStrongBuy  Signal = "strong_buy"
)

// ParseSignal accepts any casing and space/dash separators ("STRONG_BUY",
// "Strong Buy"). Unknown values map to neutral.
func ParseSignal(s string) Signal {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch Signal(v) {
	case SignalStrongSell, SignalSell, SignalNeutral, SignalBuy, SignalStrongBuy:
		return Signal(v)
	}
	return SignalNeutral
}

// Anchors are market values fetched from a trusted source. Zero means unknown.
type Anchors struct {
	Symbol       string  `json:"symbol" validate:"required"`
	CurrentPrice float64 `json:"currentPrice" validate:"gte=0"`
	High24h      float64 `json:"high24h" validate:"gte=0"`
	Low24h       float64 `json:"low24h" validate:"gte=0"`
	MarketCap    float64 `json:"marketCap" validate:"gte=0"`
	Volume24h    float64 `json:"volume24h" validate:"gte=0"`
}

// Prediction is the normalized technical analysis record.
type Prediction struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"currentPrice"`
	High24h      float64 `json:"high24h"`
	Low24h       float64 `json:"low24h"`
	MarketCap    float64 `json:"marketCap"`
	Volume24h    float64 `json:"volume24h"`

	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Pattern    string  `json:"pattern"`

	RSI              float64 `json:"rsi"`
	RSISignal        string  `json:"rsiSignal"`
	MACD             float64 `json:"macd"`
	MACDSignal       string  `json:"macdSignal"`
	SMA20            float64 `json:"sma20"`
	SMA20Signal      string  `json:"sma20Signal"`
	SMA50            float64 `json:"sma50"`
	SMA50Signal      string  `json:"sma50Signal"`
	VolumeRatio      string  `json:"volumeRatio"`
	VolumeSignal     string  `json:"volumeSignal"`
	Volatility       string  `json:"volatility"`
	VolatilitySignal string  `json:"volatilitySignal"`

	Support1    float64 `json:"support1"`
	Support2    float64 `json:"support2"`
	Support3    float64 `json:"support3"`
	Resistance1 float64 `json:"resistance1"`
	Resistance2 float64 `json:"resistance2"`
	Resistance3 float64 `json:"resistance3"`

	Prediction24h string `json:"prediction24h"`
	Prediction7d  string `json:"prediction7d"`
	Prediction30d string `json:"prediction30d"`

	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
}

func (p Prediction) Supports() [3]float64 {
	return [3]float64{p.Support1, p.Support2, p.Support3}
}

func (p Prediction) Resistances() [3]float64 {
	return [3]float64{p.Resistance1, p.Resistance2, p.Resistance3}
}
