package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	xhttp "PulseWatch/pkg/http"
	xlogger "PulseWatch/pkg/logger"
	"PulseWatch/pkg/util"
)

const maxHistoryLimit = 1000

// StreamHub is satisfied by *notify.Hub.
type StreamHub interface {
	Serve(ctx context.Context, conn *websocket.Conn, userID string)
}

type AlertsEchoHandler struct {
	logger   *xlogger.Logger
	history  drepo.AlertHistory
	hub      StreamHub
	upgrader websocket.Upgrader
}

func NewAlertsEchoHandler(logger *xlogger.Logger, history drepo.AlertHistory, hub StreamHub) *AlertsEchoHandler {
	return &AlertsEchoHandler{
		logger:  logger,
		history: history,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// any origin may subscribe
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts")
	g.GET("/history", h.History)
	g.GET("/stream", h.Stream)
}

func (h *AlertsEchoHandler) History(c echo.Context) error {
	req := &models.AlertHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	q := drepo.HistoryQuery{
		UserID: req.UserID,
		Symbol: req.Symbol,
		Limit:  util.Clamp(req.Limit, 1, maxHistoryLimit),
	}
	var ok bool
	if req.From != "" {
		if q.From, ok = util.ParseTime(req.From); !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid from: %q", req.From))
		}
	}
	if req.To != "" {
		if q.To, ok = util.ParseTime(req.To); !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid to: %q", req.To))
		}
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must not be before from"))
	}

	rows, err := h.history.Query(c.Request().Context(), q)
	if err != nil {
		h.logger.Error("alert history query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("alert history unavailable").WithError(err))
	}
	if rows == nil {
		rows = []models.AlertRecord{}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Stream upgrades to a websocket and pushes the user's notifications until
// the client disconnects.
func (h *AlertsEchoHandler) Stream(c echo.Context) error {
	req := &models.AlertStreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	_ = conn.SetWriteDeadline(time.Time{})

	h.logger.Debug("alert stream opened", xlogger.String("user_id", req.UserID))
	h.hub.Serve(c.Request().Context(), conn, req.UserID)
	h.logger.Debug("alert stream closed", xlogger.String("user_id", req.UserID))
	return nil
}
