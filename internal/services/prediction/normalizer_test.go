package prediction

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
)

var btcAnchors = models.Anchors{
	Symbol:       "bitcoin",
	CurrentPrice: 100,
	High24h:      110,
	Low24h:       90,
	MarketCap:    1_000_000,
	Volume24h:    50_000,
}

func TestNormalize_NoJSONFallsBack(t *testing.T) {
	res := NormalizeDetailed("no json here", btcAnchors)
	p := res.Prediction

	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, ReasonNoJSON, res.Reason)
	assert.Equal(t, models.SignalNeutral, p.Signal)
	assert.Equal(t, 88.2, p.Support1)
	assert.Equal(t, 85.5, p.Support2)
	assert.Equal(t, 82.8, p.Support3)
	assert.Equal(t, 112.2, p.Resistance1)
	assert.Equal(t, 115.5, p.Resistance2)
	assert.Equal(t, 118.8, p.Resistance3)
	assert.Equal(t, "no json here", p.Analysis)
	assert.Equal(t, float64(50), p.Confidence)
	assert.Equal(t, float64(50), p.RSI)
	assert.Equal(t, "Consolidation Phase", p.Pattern)
	assert.Equal(t, float64(100), p.SMA20)
	assert.Equal(t, float64(100), p.SMA50)
	assert.Equal(t, "+0.5%", p.Prediction24h)
	assert.Equal(t, "+2.0%", p.Prediction7d)
	assert.Equal(t, "+5.0%", p.Prediction30d)
	assert.Equal(t, defaultRecommendations, p.Recommendations)
	assert.Equal(t, "BITCOIN", p.Symbol)
}

func TestNormalize_FencedJSON(t *testing.T) {
	raw := "Here is my read:\n```json\n" + `{
  "symbol": "BTC",
  "currentPrice": 99999,
  "high24h": 120,
  "low24h": 80,
  "marketCap": "1,234,567",
  "volume24h": "$2.5M",
  "signal": "STRONG_BUY",
  "confidence": 75,
  "pattern": "Bull Flag",
  "rsi": 58.3,
  "macd": 245.67,
  "macdSignal": "Bullish Momentum",
  "sma20": 99,
  "sma50": 98,
  "prediction24h": "2.5%",
  "prediction7d": -1,
  "prediction30d": "+12.3%",
  "support1": 97, "support2": 95, "support3": 93,
  "resistance1": 103, "resistance2": 106, "resistance3": 109,
  "analysis": "Trend intact.",
  "recommendations": ["Buy dips", "Trail stops"]
}` + "\n```\nGood luck."

	res := NormalizeDetailed(raw, btcAnchors)
	require.Equal(t, OutcomeParsed, res.Outcome)
	p := res.Prediction

	// anchors win
	assert.Equal(t, "BITCOIN", p.Symbol)
	assert.Equal(t, float64(100), p.CurrentPrice)
	assert.Equal(t, float64(110), p.High24h)
	assert.Equal(t, float64(90), p.Low24h)
	assert.Equal(t, float64(1_000_000), p.MarketCap)

	assert.Equal(t, models.SignalStrongBuy, p.Signal)
	assert.Equal(t, float64(75), p.Confidence)
	assert.Equal(t, "Bull Flag", p.Pattern)
	assert.Equal(t, 58.3, p.RSI)
	assert.Equal(t, "Bullish Momentum", p.MACDSignal)
	assert.Equal(t, "Neutral", p.RSISignal)
	assert.Equal(t, "+2.5%", p.Prediction24h)
	assert.Equal(t, "-1.0%", p.Prediction7d)
	assert.Equal(t, "+12.3%", p.Prediction30d)
	assert.Equal(t, float64(97), p.Support1)
	assert.Equal(t, float64(109), p.Resistance3)
	assert.Equal(t, "Trend intact.", p.Analysis)
	assert.Equal(t, []string{"Buy dips", "Trail stops"}, p.Recommendations)
}

func TestNormalize_ModelValuesKeptWhenAnchorsUnknown(t *testing.T) {
	raw := `{"currentPrice": 187.5, "high24h": 190, "low24h": 180, "marketCap": "2.9T", "volume24h": "45,000,000"}`

	p := Normalize(raw, models.Anchors{Symbol: "aapl"})

	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, 187.5, p.CurrentPrice)
	assert.Equal(t, float64(190), p.High24h)
	assert.Equal(t, 2.9e12, p.MarketCap)
	assert.Equal(t, float64(45_000_000), p.Volume24h)
	// levels were missing and get synthesized from the model's own high/low
	assert.Equal(t, 176.4, p.Support1)
	assert.Equal(t, 193.8, p.Resistance1)
}

func TestNormalize_MalformedJSON(t *testing.T) {
	res := NormalizeDetailed(`{"signal": "buy", "confidence": 80,`, btcAnchors)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, ReasonNoJSON, res.Reason)

	res = NormalizeDetailed(`prefix {"signal": "buy", } suffix`, btcAnchors)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, ReasonMalformed, res.Reason)
	assert.Equal(t, models.SignalNeutral, res.Prediction.Signal)
	assert.Equal(t, `prefix {"signal": "buy", } suffix`, res.Prediction.Analysis)
}

func TestNormalize_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"}{",
		"{",
		"}",
		"{{{{}",
		"```",
		"```json```",
		`{"rsi": "abc", "confidence": true, "recommendations": 5, "signal": 1}`,
		`{"support1": null, "resistance1": [], "symbol": {}}`,
		"[1,2,3]",
	}
	for _, raw := range inputs {
		assert.NotPanics(t, func() {
			p := Normalize(raw, btcAnchors)
			assert.Equal(t, float64(100), p.CurrentPrice, raw)
			assert.NotEmpty(t, p.Recommendations, raw)
			assert.NotEmpty(t, p.Analysis, raw)
		})
	}
}

func TestNormalize_NonFiniteNumbersAreUnset(t *testing.T) {
	inputs := []string{
		`{"macd": "NaN", "sma20": "NaN", "support1": "NaN", "resistance2": "nan", "rsi": "NaN"}`,
		`{"macd": "Infinity", "sma50": "-Inf", "support2": "+Inf", "resistance1": "-Infinity", "confidence": "inf"}`,
		`{"macd": "1e400", "support3": "1e308t", "resistance3": "2e308"}`,
	}
	for _, raw := range inputs {
		p := Normalize(raw, btcAnchors)

		_, err := json.Marshal(p)
		require.NoError(t, err, raw)

		for _, v := range []float64{p.MACD, p.SMA20, p.SMA50, p.RSI, p.Confidence} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), raw)
		}
		for _, s := range []float64{p.Support1, p.Support2, p.Support3} {
			assert.Greater(t, s, float64(0), raw)
			assert.LessOrEqual(t, s, p.CurrentPrice, raw)
		}
		for _, r := range []float64{p.Resistance1, p.Resistance2, p.Resistance3} {
			assert.False(t, math.IsInf(r, 0), raw)
			assert.GreaterOrEqual(t, r, p.CurrentPrice, raw)
		}
	}
}

func TestParseLooseNumber_RejectsNonFinite(t *testing.T) {
	for _, in := range []string{"NaN", "nan", "Inf", "-Infinity", "1e400", "1e308t"} {
		_, ok := parseLooseNumber(in)
		assert.False(t, ok, in)
	}
	v, ok := parseLooseNumber("$1.5k")
	require.True(t, ok)
	assert.Equal(t, 1500.0, v)
}

func TestNormalize_ClampsScoresAndLevels(t *testing.T) {
	raw := `{"confidence": 180, "rsi": -4, "signal": "Sell",
		"support1": 150, "support2": 95, "support3": -3,
		"resistance1": 50, "resistance2": 105, "resistance3": 0}`

	p := Normalize(raw, btcAnchors)

	assert.Equal(t, float64(100), p.Confidence)
	assert.Equal(t, float64(0), p.RSI)
	assert.Equal(t, models.SignalSell, p.Signal)

	assert.Equal(t, 88.2, p.Support1)
	assert.Equal(t, float64(95), p.Support2)
	assert.Equal(t, 82.8, p.Support3)
	assert.Equal(t, 112.2, p.Resistance1)
	assert.Equal(t, float64(105), p.Resistance2)
	assert.Equal(t, 118.8, p.Resistance3)
}

func TestNormalize_BandInvariants(t *testing.T) {
	cases := []models.Anchors{
		btcAnchors,
		{Symbol: "eth", CurrentPrice: 3000, High24h: 3100, Low24h: 2900},
		{Symbol: "odd", CurrentPrice: 10, High24h: 5, Low24h: 20},
		{Symbol: "nohl", CurrentPrice: 42},
	}
	for _, a := range cases {
		p := Normalize("nothing useful", a)
		for _, s := range p.Supports() {
			assert.LessOrEqual(t, s, p.CurrentPrice, a.Symbol)
		}
		for _, r := range p.Resistances() {
			assert.GreaterOrEqual(t, r, p.CurrentPrice, a.Symbol)
		}
		assert.GreaterOrEqual(t, p.Support1, p.Support2, a.Symbol)
		assert.GreaterOrEqual(t, p.Support2, p.Support3, a.Symbol)
		assert.LessOrEqual(t, p.Resistance1, p.Resistance2, a.Symbol)
		assert.LessOrEqual(t, p.Resistance2, p.Resistance3, a.Symbol)
	}
}

func TestNormalize_ZeroAnchorsGiveZeroWidthBand(t *testing.T) {
	p := Normalize("n/a", models.Anchors{Symbol: "unknowncoin"})
	assert.Equal(t, [3]float64{0, 0, 0}, p.Supports())
	assert.Equal(t, [3]float64{0, 0, 0}, p.Resistances())
	assert.Equal(t, models.SignalNeutral, p.Signal)

	p = Normalize("n/a", models.Anchors{Symbol: "nohl", CurrentPrice: 42})
	assert.Equal(t, [3]float64{42, 42, 42}, p.Supports())
	assert.Equal(t, [3]float64{42, 42, 42}, p.Resistances())
}

func TestNormalize_BlankTextUsesDefaultAnalysis(t *testing.T) {
	p := Normalize("  ", btcAnchors)
	assert.Equal(t, defaultAnalysis, p.Analysis)
}

func TestParseSignal(t *testing.T) {
	assert.Equal(t, models.SignalStrongBuy, models.ParseSignal("STRONG_BUY"))
	assert.Equal(t, models.SignalStrongSell, models.ParseSignal("Strong Sell"))
	assert.Equal(t, models.SignalBuy, models.ParseSignal(" buy "))
	assert.Equal(t, models.SignalNeutral, models.ParseSignal("moon"))
}

func TestStripAndExtract(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))

	body, ok := extractObject(`text {"a": {"b": 2}} tail`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 2}}`, body)

	_, ok = extractObject("} before {")
	assert.False(t, ok)
}

func TestDetectAsset(t *testing.T) {
	cases := []struct {
		in     string
		typ    models.AssetType
		lookup string
	}{
		{"BTC", models.AssetCrypto, "bitcoin"},
		{"eth", models.AssetCrypto, "ethereum"},
		{"polygon", models.AssetCrypto, "matic-network"},
		{"AAPL", models.AssetStock, "AAPL"},
		{"tsla", models.AssetCrypto, "tsla"},
		{"chainlink", models.AssetCrypto, "chainlink"},
	}
	for _, c := range cases {
		typ, lookup := DetectAsset(c.in)
		assert.Equal(t, c.typ, typ, c.in)
		assert.Equal(t, c.lookup, lookup, c.in)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(models.AssetCrypto, models.Anchors{Symbol: "bitcoin", CurrentPrice: 68000, High24h: 69000})
	assert.Contains(t, prompt, "Symbol: BITCOIN")
	assert.Contains(t, prompt, "Current Price: $68,000")
	assert.Contains(t, prompt, "24h High: $69,000")
	assert.NotContains(t, prompt, "24h Low")
	assert.Contains(t, prompt, `"currentPrice": 68000`)

	stock := BuildPrompt(models.AssetStock, models.Anchors{Symbol: "AAPL"})
	assert.Contains(t, stock, "stock chart")
	assert.Contains(t, stock, "read it from the chart")
}
