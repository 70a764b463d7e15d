package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
)

func alertFor(user, symbol string) models.Alert {
	return models.Alert{UserID: user, Symbol: symbol, Direction: models.DirectionUp}
}

func symbols(alerts []models.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.UserID+"/"+a.Symbol)
	}
	return out
}

func TestDedupe_SuppressesWithinCooldown(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	in := []models.Alert{alertFor("u1", "bitcoin"), alertFor("u1", "ethereum"), alertFor("u2", "bitcoin")}
	last := map[string]time.Time{
		models.CooldownKey("u1", "bitcoin"):  now.Add(-time.Minute),
		models.CooldownKey("u1", "ethereum"): now.Add(-10 * time.Minute),
	}

	out := Dedupe(in, last, now, 5*time.Minute)
	assert.Equal(t, []string{"u1/ethereum", "u2/bitcoin"}, symbols(out))
}

func TestDedupe_AcceptsOnceCooldownElapsed(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	last := map[string]time.Time{models.CooldownKey("u1", "bitcoin"): now.Add(-2 * time.Minute)}

	out := Dedupe([]models.Alert{alertFor("u1", "bitcoin")}, last, now, 2*time.Minute)
	require.Len(t, out, 1)
}

func TestDedupe_NextTickEarlyByJitterStillFires(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 2, 0, 0, time.UTC)
	last := map[string]time.Time{models.CooldownKey("u1", "bitcoin"): now.Add(-(2*time.Minute - time.Millisecond))}

	// default cooldown for a 2m interval
	out := Dedupe([]models.Alert{alertFor("u1", "bitcoin")}, last, now, 108*time.Second)
	assert.Len(t, out, 1)

	out = Dedupe([]models.Alert{alertFor("u1", "bitcoin")}, last, now, 2*time.Minute)
	assert.Empty(t, out)
}

func TestDedupe_PreservesOrderAndCollapsesRepeats(t *testing.T) {
	now := time.Now()
	in := []models.Alert{
		alertFor("u1", "solana"),
		alertFor("u1", "bitcoin"),
		alertFor("u1", "SOLANA"),
		alertFor("u1", "cardano"),
	}

	out := Dedupe(in, nil, now, time.Minute)
	assert.Equal(t, []string{"u1/solana", "u1/bitcoin", "u1/cardano"}, symbols(out))
}

func TestDedupe_ZeroCooldownForwardsEverything(t *testing.T) {
	now := time.Now()
	last := map[string]time.Time{models.CooldownKey("u1", "bitcoin"): now}

	out := Dedupe([]models.Alert{alertFor("u1", "bitcoin")}, last, now, 0)
	assert.Len(t, out, 1)
}

func TestDedupe_DoesNotMutateBookkeeping(t *testing.T) {
	now := time.Now()
	last := map[string]time.Time{}

	Dedupe([]models.Alert{alertFor("u1", "bitcoin")}, last, now, time.Minute)
	assert.Empty(t, last)
}

func TestFormat(t *testing.T) {
	n := Format(models.Alert{UserID: "u1", Symbol: "bitcoin", Direction: models.DirectionDown, Message: "Bitcoin dropped 4.0%! Now $60,000"})

	assert.Equal(t, "📉 BITCOIN Price Alert", n.Title)
	assert.Equal(t, "Bitcoin dropped 4.0%! Now $60,000", n.Body)
	assert.Equal(t, "BITCOIN", n.Tag)
	assert.Equal(t, "u1", n.UserID)
}
