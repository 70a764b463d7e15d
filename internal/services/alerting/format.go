package alerting

import (
	"strings"

	"PulseWatch/internal/domain/models"
)

// Format builds the user-facing notification for an alert. The tag is the
// upper-cased symbol so clients can collapse repeats.
func Format(a models.Alert) models.Notification {
	symbol := strings.ToUpper(a.Symbol)

	icon := "🚀"
	if a.Direction == models.DirectionDown {
		icon = "📉"
	}

	return models.Notification{
		UserID: a.UserID,
		Title:  icon + " " + symbol + " Price Alert",
		Body:   a.Message,
		Tag:    symbol,
		Alert:  a,
	}
}
