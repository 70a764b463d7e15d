package models

import "time"

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Alert is produced by the threshold evaluator and consumed once by dispatch.
type Alert struct {
	UserID        string    `json:"userId"`
	AssetType     AssetType `json:"assetType"`
	Symbol        string    `json:"symbol"`
	DisplayName   string    `json:"displayName"`
	CurrentPrice  float64   `json:"currentPrice"`
	ChangePercent float64   `json:"changePercent"`
	Direction     Direction `json:"direction"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CooldownKey identifies the (user, symbol) pair a cooldown applies to.
func (a Alert) CooldownKey() string {
	return CooldownKey(a.UserID, a.Symbol)
}

func CooldownKey(userID, symbol string) string {
	return userID + ":" + SymbolKey(symbol)
}

// Notification is the finished payload handed to a dispatcher.
type Notification struct {
	ID     string `json:"id"`
	TickID string `json:"tickId"`
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Tag    string `json:"tag"`
	Alert  Alert  `json:"alert"`
}

// TickReport summarizes one monitoring pass.
type TickReport struct {
	TickID     string        `json:"tickId"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Monitored  int           `json:"monitored"`
	Evaluated  int           `json:"evaluated"`
	Skipped    int           `json:"skipped"`
	Alerts     int           `json:"alerts"`
	Suppressed int           `json:"suppressed"`
	Dispatched int           `json:"dispatched"`
	Failed     int           `json:"failed"`
	Aborted    bool          `json:"aborted"`
	Reason     string        `json:"reason,omitempty"`
	// Sent holds the alerts whose dispatch succeeded, in dispatch order.
	Sent []Alert `json:"sent"`
}

// AlertRecord is a row of alert history.
type AlertRecord struct {
	ID            string    `json:"id"`
	TickID        string    `json:"tickId"`
	UserID        string    `json:"userId"`
	AssetType     string    `json:"assetType"`
	Symbol        string    `json:"symbol"`
	DisplayName   string    `json:"displayName"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"changePercent"`
	Direction     string    `json:"direction"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}
