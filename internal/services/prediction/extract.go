package prediction

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Outcome tags how a raw model reply was turned into a prediction.
type Outcome int

const (
	OutcomeParsed Outcome = iota
	OutcomeFallback
)

func (o Outcome) String() string {
	if o == OutcomeParsed {
		return "parsed"
	}
	return "fallback"
}

const (
	ReasonNoJSON    = "no_json"
	ReasonMalformed = "malformed_json"
)

type extraction struct {
	outcome Outcome
	reason  string
	record  rawPrediction
}

var fenceRe = regexp.MustCompile("(?i)```(?:json)?[ \t]*\r?\n?")

func stripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// extractObject returns the text from the first '{' to the last '}'.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

func extract(raw string) extraction {
	body, ok := extractObject(stripFences(raw))
	if !ok {
		return extraction{outcome: OutcomeFallback, reason: ReasonNoJSON}
	}

	var rec rawPrediction
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return extraction{outcome: OutcomeFallback, reason: ReasonMalformed}
	}
	return extraction{outcome: OutcomeParsed, record: rec}
}

// rawPrediction mirrors the model's reply. Every field tolerates being
// missing, null, or of the wrong JSON type.
type rawPrediction struct {
	Symbol       looseString `json:"symbol"`
	CurrentPrice looseNumber `json:"currentPrice"`
	High24h      looseNumber `json:"high24h"`
	Low24h       looseNumber `json:"low24h"`
	MarketCap    looseNumber `json:"marketCap"`
	Volume24h    looseNumber `json:"volume24h"`

	Signal     looseString `json:"signal"`
	Confidence looseNumber `json:"confidence"`
	Pattern    looseString `json:"pattern"`

	RSI              looseNumber `json:"rsi"`
	RSISignal        looseString `json:"rsiSignal"`
	MACD             looseNumber `json:"macd"`
	MACDSignal       looseString `json:"macdSignal"`
	SMA20            looseNumber `json:"sma20"`
	SMA20Signal      looseString `json:"sma20Signal"`
	SMA50            looseNumber `json:"sma50"`
	SMA50Signal      looseString `json:"sma50Signal"`
	VolumeRatio      looseString `json:"volumeRatio"`
	VolumeSignal     looseString `json:"volumeSignal"`
	Volatility       looseString `json:"volatility"`
	VolatilitySignal looseString `json:"volatilitySignal"`

	Support1    looseNumber `json:"support1"`
	Support2    looseNumber `json:"support2"`
	Support3    looseNumber `json:"support3"`
	Resistance1 looseNumber `json:"resistance1"`
	Resistance2 looseNumber `json:"resistance2"`
	Resistance3 looseNumber `json:"resistance3"`

	Prediction24h looseString `json:"prediction24h"`
	Prediction7d  looseString `json:"prediction7d"`
	Prediction30d looseString `json:"prediction30d"`

	Analysis        looseString  `json:"analysis"`
	Recommendations looseStrings `json:"recommendations"`
}

// looseNumber accepts 1234.5, "1,234.5", "$1.2B" or "2.5%".
type looseNumber struct {
	Value float64
	Set   bool
}

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		n.Value, n.Set = t, true
	case string:
		if f, ok := parseLooseNumber(t); ok {
			n.Value, n.Set = f, true
		}
	}
	return nil
}

func (n looseNumber) or(def float64) float64 {
	if n.Set {
		return n.Value
	}
	return def
}

var magnitudeSuffix = map[byte]float64{'k': 1e3, 'm': 1e6, 'b': 1e9, 't': 1e12}

func parseLooseNumber(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(",", "", "$", "", "%", "", " ", "", "usd", "").Replace(s)
	if s == "" {
		return 0, false
	}

	mult := 1.0
	if m, ok := magnitudeSuffix[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	f *= mult
	// ParseFloat accepts "NaN" and "Inf"
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// looseString accepts strings, numbers and booleans.
type looseString struct {
	Value string
	Set   bool
}

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			s.Value, s.Set = trimmed, true
		}
	case float64:
		s.Value, s.Set = strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		s.Value, s.Set = strconv.FormatBool(t), true
	}
	return nil
}

func (s looseString) or(def string) string {
	if s.Set {
		return s.Value
	}
	return def
}

// looseStrings accepts a list of scalars or a single string.
type looseStrings struct {
	Values []string
}

func (s *looseStrings) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			s.Values = []string{trimmed}
		}
	case []interface{}:
		for _, item := range t {
			var text string
			switch it := item.(type) {
			case string:
				text = strings.TrimSpace(it)
			case float64, bool:
				text = fmt.Sprint(it)
			}
			if text != "" {
				s.Values = append(s.Values, text)
			}
		}
	}
	return nil
}
