package alerting

import (
	"time"

	"PulseWatch/internal/domain/models"
)

// Dedupe drops alerts whose (user, symbol) pair was dispatched less than
// cooldown ago, and repeats of a pair within the same batch. Input order is
// preserved. lastSentAt is keyed by models.CooldownKey and is not modified;
// the caller records the accepted alerts.
func Dedupe(alerts []models.Alert, lastSentAt map[string]time.Time, now time.Time, cooldown time.Duration) []models.Alert {
	accepted := make([]models.Alert, 0, len(alerts))
	seen := make(map[string]struct{}, len(alerts))

	for _, a := range alerts {
		key := a.CooldownKey()
		if _, dup := seen[key]; dup {
			continue
		}
		if cooldown > 0 {
			if last, ok := lastSentAt[key]; ok && now.Sub(last) < cooldown {
				continue
			}
		}
		seen[key] = struct{}{}
		accepted = append(accepted, a)
	}

	return accepted
}
