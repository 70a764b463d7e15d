package models

// Requests for the HTTP endpoints.

type NormalizeRequest struct {
	Raw     string  `json:"raw"`
	Anchors Anchors `json:"anchors" validate:"required"`
}

type AnalyzeChartRequest struct {
	Image  string `json:"image" validate:"required"`
	Symbol string `json:"symbol" default:"bitcoin" validate:"required,max=64"`
}

type AlertHistoryRequest struct {
	UserID string `query:"user_id" json:"user_id"`
	Symbol string `query:"symbol" json:"symbol"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type AlertStreamRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required"`
}
