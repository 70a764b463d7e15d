package alerting

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"PulseWatch/internal/domain/models"
)

var (
	ErrInvalidThreshold = errors.New("alert threshold must be positive")
	ErrSymbolMismatch   = errors.New("snapshot symbol does not match instrument")
)

var pricePrinter = message.NewPrinter(language.English)

// Evaluate decides whether the snapshot moved far enough from its reference
// to alert on. A nil snapshot means the instrument is skipped this tick.
func Evaluate(inst models.Instrument, snap *models.PriceSnapshot) (*models.Alert, error) {
	if inst.AlertThresholdPercent <= 0 || math.IsNaN(inst.AlertThresholdPercent) {
		return nil, fmt.Errorf("%s/%s: %w", inst.UserID, inst.Symbol, ErrInvalidThreshold)
	}
	if snap == nil {
		return nil, nil
	}
	if models.SymbolKey(snap.Symbol) != models.SymbolKey(inst.Symbol) {
		return nil, fmt.Errorf("%q vs %q: %w", snap.Symbol, inst.Symbol, ErrSymbolMismatch)
	}

	change := snap.Change()
	if math.IsNaN(change) {
		return nil, nil
	}
	magnitude := math.Abs(change)
	if magnitude < inst.AlertThresholdPercent {
		return nil, nil
	}

	direction := models.DirectionUp
	verb := "is up"
	if change < 0 {
		direction = models.DirectionDown
		verb = "dropped"
	}

	return &models.Alert{
		UserID:        inst.UserID,
		AssetType:     inst.AssetType,
		Symbol:        inst.Symbol,
		DisplayName:   inst.Label(),
		CurrentPrice:  snap.CurrentPrice,
		ChangePercent: change,
		Direction:     direction,
		Message:       fmt.Sprintf("%s %s %s%%! Now $%s", inst.Label(), verb, FormatPercent(magnitude), FormatPrice(snap.CurrentPrice)),
	}, nil
}

// FormatPercent renders a magnitude with one decimal, rounding half away
// from zero.
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// FormatPrice renders a price with thousands grouping and up to three
// fraction digits, e.g. 68000 -> "68,000", 0.5123 -> "0.512".
func FormatPrice(v float64) string {
	return pricePrinter.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
