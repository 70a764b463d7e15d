package prediction

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"PulseWatch/internal/domain/models"
)

const (
	defaultPattern  = "Consolidation Phase"
	defaultAnalysis = "Market analysis based on current data shows consolidation. Further monitoring recommended."
)

var defaultRecommendations = []string{
	"Monitor key support and resistance levels",
	"Consider dollar-cost averaging for long-term positions",
	"Set stop-loss orders below key support levels",
	"Watch for volume confirmation on breakouts",
	"Diversify portfolio across multiple assets",
}

var (
	supportMultipliers    = [3]decimal.Decimal{decimal.RequireFromString("0.98"), decimal.RequireFromString("0.95"), decimal.RequireFromString("0.92")}
	resistanceMultipliers = [3]decimal.Decimal{decimal.RequireFromString("1.02"), decimal.RequireFromString("1.05"), decimal.RequireFromString("1.08")}
)

// Result carries the normalized prediction and how it was obtained.
type Result struct {
	Outcome    Outcome
	Reason     string
	Prediction models.Prediction
}

// Normalize turns raw model output into a complete prediction. It never
// fails: unusable text yields a fallback synthesized from the anchors.
func Normalize(raw string, anchors models.Anchors) models.Prediction {
	return NormalizeDetailed(raw, anchors).Prediction
}

func NormalizeDetailed(raw string, anchors models.Anchors) Result {
	ex := extract(raw)

	var p models.Prediction
	if ex.outcome == OutcomeParsed {
		p = overlay(fallback(raw, anchors), ex.record)
	} else {
		p = fallback(raw, anchors)
	}

	p = reconcile(p, anchors)
	p = enforceBounds(p)

	return Result{Outcome: ex.outcome, Reason: ex.reason, Prediction: p}
}

// fallback builds the default record from the anchors alone.
func fallback(raw string, a models.Anchors) models.Prediction {
	analysis := raw
	if strings.TrimSpace(analysis) == "" {
		analysis = defaultAnalysis
	}

	supports := supportBand(a.Low24h, a.CurrentPrice)
	resistances := resistanceBand(a.High24h, a.CurrentPrice)

	return models.Prediction{
		Symbol:       strings.ToUpper(a.Symbol),
		CurrentPrice: a.CurrentPrice,
		High24h:      a.High24h,
		Low24h:       a.Low24h,
		MarketCap:    a.MarketCap,
		Volume24h:    a.Volume24h,

		Signal:     models.SignalNeutral,
		Confidence: 50,
		Pattern:    defaultPattern,

		RSI:              50,
		RSISignal:        "Neutral",
		MACD:             0,
		MACDSignal:       "Neutral",
		SMA20:            a.CurrentPrice,
		SMA20Signal:      "Neutral",
		SMA50:            a.CurrentPrice,
		SMA50Signal:      "At Average",
		VolumeRatio:      "1.0%",
		VolumeSignal:     "Normal Activity",
		Volatility:       "0.5%",
		VolatilitySignal: "Medium Risk",

		Support1:    supports[0],
		Support2:    supports[1],
		Support3:    supports[2],
		Resistance1: resistances[0],
		Resistance2: resistances[1],
		Resistance3: resistances[2],

		Prediction24h: "+0.5%",
		Prediction7d:  "+2.0%",
		Prediction30d: "+5.0%",

		Analysis:        analysis,
		Recommendations: append([]string(nil), defaultRecommendations...),
	}
}

// overlay copies every field the model supplied onto base.
func overlay(base models.Prediction, r rawPrediction) models.Prediction {
	p := base

	p.Symbol = strings.ToUpper(r.Symbol.or(p.Symbol))
	p.CurrentPrice = r.CurrentPrice.or(p.CurrentPrice)
	p.High24h = r.High24h.or(p.High24h)
	p.Low24h = r.Low24h.or(p.Low24h)
	p.MarketCap = r.MarketCap.or(p.MarketCap)
	p.Volume24h = r.Volume24h.or(p.Volume24h)

	if r.Signal.Set {
		p.Signal = models.ParseSignal(r.Signal.Value)
	}
	p.Confidence = r.Confidence.or(p.Confidence)
	p.Pattern = r.Pattern.or(p.Pattern)

	p.RSI = r.RSI.or(p.RSI)
	p.RSISignal = r.RSISignal.or(p.RSISignal)
	p.MACD = r.MACD.or(p.MACD)
	p.MACDSignal = r.MACDSignal.or(p.MACDSignal)
	p.SMA20 = r.SMA20.or(0)
	p.SMA20Signal = r.SMA20Signal.or(p.SMA20Signal)
	p.SMA50 = r.SMA50.or(0)
	p.SMA50Signal = r.SMA50Signal.or(p.SMA50Signal)
	p.VolumeRatio = r.VolumeRatio.or(p.VolumeRatio)
	p.VolumeSignal = r.VolumeSignal.or(p.VolumeSignal)
	p.Volatility = r.Volatility.or(p.Volatility)
	p.VolatilitySignal = r.VolatilitySignal.or(p.VolatilitySignal)

	// zero marks a level for re-synthesis in enforceBounds
	p.Support1 = r.Support1.or(0)
	p.Support2 = r.Support2.or(0)
	p.Support3 = r.Support3.or(0)
	p.Resistance1 = r.Resistance1.or(0)
	p.Resistance2 = r.Resistance2.or(0)
	p.Resistance3 = r.Resistance3.or(0)

	p.Prediction24h = signedPercent(r.Prediction24h, p.Prediction24h)
	p.Prediction7d = signedPercent(r.Prediction7d, p.Prediction7d)
	p.Prediction30d = signedPercent(r.Prediction30d, p.Prediction30d)

	p.Analysis = r.Analysis.or(defaultAnalysis)
	if len(r.Recommendations.Values) > 0 {
		p.Recommendations = r.Recommendations.Values
	}

	return p
}

// reconcile lets non-zero anchors override whatever the model produced.
func reconcile(p models.Prediction, a models.Anchors) models.Prediction {
	if a.Symbol != "" {
		p.Symbol = strings.ToUpper(a.Symbol)
	}
	if a.CurrentPrice != 0 {
		p.CurrentPrice = a.CurrentPrice
	}
	if a.High24h != 0 {
		p.High24h = a.High24h
	}
	if a.Low24h != 0 {
		p.Low24h = a.Low24h
	}
	if a.MarketCap != 0 {
		p.MarketCap = a.MarketCap
	}
	if a.Volume24h != 0 {
		p.Volume24h = a.Volume24h
	}
	return p
}

// enforceBounds clamps scores and keeps supports at or below the price and
// resistances at or above it.
func enforceBounds(p models.Prediction) models.Prediction {
	p.CurrentPrice = nonNegative(p.CurrentPrice)
	p.High24h = nonNegative(p.High24h)
	p.Low24h = nonNegative(p.Low24h)
	p.MarketCap = nonNegative(p.MarketCap)
	p.Volume24h = nonNegative(p.Volume24h)

	p.Confidence = clamp(p.Confidence, 0, 100)
	p.RSI = clamp(p.RSI, 0, 100)
	p.MACD = finite(p.MACD)
	p.SMA20 = finite(p.SMA20)
	p.SMA50 = finite(p.SMA50)

	if p.SMA20 <= 0 {
		p.SMA20 = p.CurrentPrice
	}
	if p.SMA50 <= 0 {
		p.SMA50 = p.CurrentPrice
	}

	price := p.CurrentPrice
	supports := supportBand(p.Low24h, price)
	resistances := resistanceBand(p.High24h, price)
	levels := [6]*float64{&p.Support1, &p.Support2, &p.Support3, &p.Resistance1, &p.Resistance2, &p.Resistance3}

	for _, l := range levels {
		*l = finite(*l)
	}

	for i := 0; i < 3; i++ {
		s := levels[i]
		if *s <= 0 || (price > 0 && *s > price) {
			*s = supports[i]
		}
		if price > 0 {
			*s = math.Min(*s, price)
		}

		r := levels[i+3]
		if *r <= 0 || (price > 0 && *r < price) {
			*r = resistances[i]
		}
		if price > 0 {
			*r = math.Max(*r, price)
		}
	}

	if len(p.Recommendations) == 0 {
		p.Recommendations = append([]string(nil), defaultRecommendations...)
	}
	if p.Pattern == "" {
		p.Pattern = defaultPattern
	}

	return p
}

// supportBand is low × {0.98, 0.95, 0.92}; an unknown low collapses the band
// onto the price.
func supportBand(low, price float64) [3]float64 {
	return band(low, price, supportMultipliers)
}

// resistanceBand is high × {1.02, 1.05, 1.08}; an unknown high collapses the
// band onto the price.
func resistanceBand(high, price float64) [3]float64 {
	return band(high, price, resistanceMultipliers)
}

func band(base, price float64, mult [3]decimal.Decimal) [3]float64 {
	var out [3]float64
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		p := nonNegative(price)
		return [3]float64{p, p, p}
	}
	b := decimal.NewFromFloat(base)
	for i, m := range mult {
		out[i] = b.Mul(m).InexactFloat64()
	}
	return out
}

func signedPercent(s looseString, def string) string {
	if !s.Set {
		return def
	}
	v, ok := parseLooseNumber(s.Value)
	if !ok {
		return def
	}
	return FormatSignedPercent(v)
}

// FormatSignedPercent renders v as "+2.5%" or "-1.0%".
func FormatSignedPercent(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(1)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// finite maps NaN and ±Inf to zero, which callers treat as unset.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
