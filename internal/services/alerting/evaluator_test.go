package alerting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
)

func pct(v float64) *float64 { return &v }

func TestEvaluate_BitcoinUp(t *testing.T) {
	inst := models.Instrument{UserID: "u1", AssetType: models.AssetCrypto, Symbol: "bitcoin", DisplayName: "Bitcoin", AlertThresholdPercent: 2.0}
	snap := &models.PriceSnapshot{Symbol: "bitcoin", CurrentPrice: 68000, ChangePercent: pct(3.2)}

	alert, err := Evaluate(inst, snap)
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, models.DirectionUp, alert.Direction)
	assert.Contains(t, alert.Message, "3.2%")
	assert.Contains(t, alert.Message, "$68,000")
	assert.Equal(t, "Bitcoin is up 3.2%! Now $68,000", alert.Message)
	assert.Equal(t, "u1", alert.UserID)
	assert.Equal(t, 3.2, alert.ChangePercent)
}

func TestEvaluate_EthereumBelowThreshold(t *testing.T) {
	inst := models.Instrument{UserID: "u1", Symbol: "ethereum", AlertThresholdPercent: 5.0}
	snap := &models.PriceSnapshot{Symbol: "ethereum", CurrentPrice: 3000, ChangePercent: pct(-4.9)}

	alert, err := Evaluate(inst, snap)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestEvaluate_ExactThresholdAlerts(t *testing.T) {
	inst := models.Instrument{Symbol: "solana", AlertThresholdPercent: 2.0}

	up, err := Evaluate(inst, &models.PriceSnapshot{Symbol: "solana", CurrentPrice: 150, ChangePercent: pct(2.0)})
	require.NoError(t, err)
	require.NotNil(t, up)
	assert.Equal(t, models.DirectionUp, up.Direction)

	down, err := Evaluate(inst, &models.PriceSnapshot{Symbol: "solana", CurrentPrice: 150, ChangePercent: pct(-2.0)})
	require.NoError(t, err)
	require.NotNil(t, down)
	assert.Equal(t, models.DirectionDown, down.Direction)
	assert.Equal(t, "SOLANA dropped 2.0%! Now $150", down.Message)
}

func TestEvaluate_DirectionFollowsSign(t *testing.T) {
	inst := models.Instrument{Symbol: "x", AlertThresholdPercent: 0.1}
	for _, change := range []float64{-50, -0.1, 0.1, 12.5} {
		alert, err := Evaluate(inst, &models.PriceSnapshot{Symbol: "x", CurrentPrice: 1, ChangePercent: pct(change)})
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, change < 0, alert.Direction == models.DirectionDown, "change %v", change)
	}
}

func TestEvaluate_DerivesChangeWhenAbsent(t *testing.T) {
	inst := models.Instrument{Symbol: "AAPL", DisplayName: "Apple", AlertThresholdPercent: 2.0}

	alert, err := Evaluate(inst, &models.PriceSnapshot{Symbol: "aapl", CurrentPrice: 105, ReferencePrice: 100})
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.InDelta(t, 5.0, alert.ChangePercent, 1e-9)
	assert.Equal(t, "Apple is up 5.0%! Now $105", alert.Message)

	// zero reference degrades to no change
	alert, err = Evaluate(inst, &models.PriceSnapshot{Symbol: "AAPL", CurrentPrice: 105})
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestEvaluate_MissingSnapshot(t *testing.T) {
	alert, err := Evaluate(models.Instrument{Symbol: "bitcoin", AlertThresholdPercent: 2}, nil)
	assert.NoError(t, err)
	assert.Nil(t, alert)
}

func TestEvaluate_InvalidConfig(t *testing.T) {
	snap := &models.PriceSnapshot{Symbol: "bitcoin", CurrentPrice: 1, ChangePercent: pct(10)}

	_, err := Evaluate(models.Instrument{Symbol: "bitcoin", AlertThresholdPercent: 0}, snap)
	assert.True(t, errors.Is(err, ErrInvalidThreshold))

	_, err = Evaluate(models.Instrument{Symbol: "bitcoin", AlertThresholdPercent: -1}, snap)
	assert.True(t, errors.Is(err, ErrInvalidThreshold))

	_, err = Evaluate(models.Instrument{Symbol: "ethereum", AlertThresholdPercent: 2}, snap)
	assert.True(t, errors.Is(err, ErrSymbolMismatch))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "68,000", FormatPrice(68000))
	assert.Equal(t, "1,234,567.891", FormatPrice(1234567.8912))
	assert.Equal(t, "0.512", FormatPrice(0.5123))
	assert.Equal(t, "0", FormatPrice(0))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "3.2", FormatPercent(3.2))
	assert.Equal(t, "4.9", FormatPercent(4.94))
	assert.Equal(t, "10.0", FormatPercent(9.96))
}
