package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"PulseWatch/internal/domain/models"
	xhttp "PulseWatch/pkg/http"
	xlogger "PulseWatch/pkg/logger"
)

// TickerLister is satisfied by *usecase.MarketTickers.
type TickerLister interface {
	Tickers(ctx context.Context) ([]models.Ticker, error)
}

type MarketEchoHandler struct {
	logger  *xlogger.Logger
	tickers TickerLister
}

func NewMarketEchoHandler(logger *xlogger.Logger, tickers TickerLister) *MarketEchoHandler {
	return &MarketEchoHandler{logger: logger, tickers: tickers}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/market/tickers", h.Tickers)
}

func (h *MarketEchoHandler) Tickers(c echo.Context) error {
	rows, err := h.tickers.Tickers(c.Request().Context())
	if err != nil {
		h.logger.Error("market tickers failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("market data unavailable"))
	}
	if rows == nil {
		rows = []models.Ticker{}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"tickers": rows})
}
