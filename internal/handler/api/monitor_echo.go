package api

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"PulseWatch/internal/domain/models"
	"PulseWatch/internal/usecase"
	xhttp "PulseWatch/pkg/http"
	xlogger "PulseWatch/pkg/logger"
)

// TickTrigger is satisfied by *usecase.Scheduler.
type TickTrigger interface {
	Trigger(ctx context.Context) (models.TickReport, error)
	LastReport() (models.TickReport, bool)
	Running() bool
}

type TickResponse struct {
	TickID     string `json:"tickId"`
	Monitored  int    `json:"monitored"`
	Evaluated  int    `json:"evaluated"`
	Skipped    int    `json:"skipped"`
	Alerts     int    `json:"alerts"`
	Suppressed int    `json:"suppressed"`
	Dispatched int    `json:"dispatched"`
	Failed     int    `json:"failed"`
	Aborted    bool   `json:"aborted"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

func toTickResponse(r models.TickReport) TickResponse {
	return TickResponse{
		TickID:     r.TickID,
		Monitored:  r.Monitored,
		Evaluated:  r.Evaluated,
		Skipped:    r.Skipped,
		Alerts:     r.Alerts,
		Suppressed: r.Suppressed,
		Dispatched: r.Dispatched,
		Failed:     r.Failed,
		Aborted:    r.Aborted,
		Reason:     r.Reason,
		DurationMs: r.Duration.Milliseconds(),
	}
}

type MonitorEchoHandler struct {
	logger    *xlogger.Logger
	scheduler TickTrigger
}

func NewMonitorEchoHandler(logger *xlogger.Logger, scheduler TickTrigger) *MonitorEchoHandler {
	return &MonitorEchoHandler{logger: logger, scheduler: scheduler}
}

func (h *MonitorEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/monitor")
	g.POST("/tick", h.Tick)
	g.GET("/status", h.Status)
}

// Tick runs a tick synchronously. The tick outlives a disconnecting client.
func (h *MonitorEchoHandler) Tick(c echo.Context) error {
	report, err := h.scheduler.Trigger(context.WithoutCancel(c.Request().Context()))
	if errors.Is(err, usecase.ErrTickInProgress) {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("a monitoring tick is already running"))
	}
	if err != nil {
		h.logger.Error("manual tick failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, toTickResponse(report))
}

func (h *MonitorEchoHandler) Status(c echo.Context) error {
	out := map[string]interface{}{"running": h.scheduler.Running()}
	if last, ok := h.scheduler.LastReport(); ok {
		out["lastTick"] = toTickResponse(last)
		out["lastTickAt"] = last.StartedAt
	}
	return xhttp.SuccessResponse(c, out)
}
