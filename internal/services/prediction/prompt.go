package prediction

import (
	"fmt"
	"strings"

	"PulseWatch/internal/domain/models"
	"PulseWatch/internal/services/alerting"
)

const responseShape = `{
  "symbol": "%[1]s",
  "currentPrice": %[2]s,
  "high24h": %[3]s,
  "low24h": %[4]s,
  "marketCap": %[5]s,
  "volume24h": %[6]s,
  "signal": "strong_sell | sell | neutral | buy | strong_buy",
  "confidence": 0-100,
  "pattern": "chart pattern name",
  "rsi": 0-100, "rsiSignal": "text",
  "macd": number, "macdSignal": "text",
  "sma20": number, "sma20Signal": "text",
  "sma50": number, "sma50Signal": "text",
  "volumeRatio": "1.15%%", "volumeSignal": "text",
  "volatility": "0.42%%", "volatilitySignal": "text",
  "prediction24h": "+2.5%%", "prediction7d": "+5.8%%", "prediction30d": "+12.3%%",
  "support1": number, "support2": number, "support3": number,
  "resistance1": number, "resistance2": number, "resistance3": number,
  "analysis": "trend, momentum and volume observations",
  "recommendations": ["five actionable items"]
}`

// BuildPrompt writes the chart analysis instruction for the model, embedding
// whatever anchors are known so the model does not have to guess them.
func BuildPrompt(assetType models.AssetType, a models.Anchors) string {
	symbol := strings.ToUpper(a.Symbol)
	kind := "cryptocurrency"
	if assetType == models.AssetStock {
		kind = "stock"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a technical analyst covering both crypto and equities.\n\n")
	fmt.Fprintf(&b, "Analyze this %s chart.\n\nSymbol: %s\n", kind, symbol)

	if a.CurrentPrice > 0 {
		fmt.Fprintf(&b, "Current Price: $%s\n", alerting.FormatPrice(a.CurrentPrice))
	} else {
		b.WriteString("Price: read it from the chart\n")
	}
	writeAnchor(&b, "24h High", a.High24h)
	writeAnchor(&b, "24h Low", a.Low24h)
	writeAnchor(&b, "Market Cap", a.MarketCap)
	writeAnchor(&b, "24h Volume", a.Volume24h)

	if assetType == models.AssetStock {
		b.WriteString("Market: US equities (NYSE/NASDAQ). Weigh sector performance, index correlation and earnings cycles.\n")
	} else {
		b.WriteString("Market: crypto. Weigh market cycle position, Bitcoin dominance and on-chain activity.\n")
	}

	b.WriteString("\nReturn ONLY a JSON object with this structure, no markdown:\n")
	fmt.Fprintf(&b, responseShape, symbol, num(a.CurrentPrice), num(a.High24h), num(a.Low24h), num(a.MarketCap), num(a.Volume24h))
	b.WriteString("\n\nBase indicators, patterns, support/resistance and predictions on what the chart shows.")

	return b.String()
}

func writeAnchor(b *strings.Builder, label string, v float64) {
	if v > 0 {
		fmt.Fprintf(b, "%s: $%s\n", label, alerting.FormatPrice(v))
	}
}

func num(v float64) string {
	if v <= 0 {
		return "number"
	}
	return fmt.Sprintf("%g", v)
}
