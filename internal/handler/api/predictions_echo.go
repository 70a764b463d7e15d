package api

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"PulseWatch/internal/domain/models"
	"PulseWatch/internal/usecase"
	xhttp "PulseWatch/pkg/http"
	"PulseWatch/pkg/http/middleware"
	xlogger "PulseWatch/pkg/logger"
)

// ChartAnalyzer is satisfied by *usecase.ChartAnalysis.
type ChartAnalyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeChartRequest) (models.Prediction, error)
	Normalize(raw string, anchors models.Anchors) models.Prediction
}

type PredictionEchoHandler struct {
	logger   *xlogger.Logger
	analysis ChartAnalyzer
	limiter  middleware.Limiter
}

func NewPredictionEchoHandler(logger *xlogger.Logger, analysis ChartAnalyzer, limiter middleware.Limiter) *PredictionEchoHandler {
	return &PredictionEchoHandler{logger: logger, analysis: analysis, limiter: limiter}
}

func (h *PredictionEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/predictions")
	g.POST("/normalize", h.Normalize)
	if h.limiter != nil {
		g.POST("/analyze", h.Analyze, middleware.RateLimit(h.limiter))
	} else {
		g.POST("/analyze", h.Analyze)
	}
}

func (h *PredictionEchoHandler) Normalize(c echo.Context) error {
	req := &models.NormalizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.analysis.Normalize(req.Raw, req.Anchors))
}

func (h *PredictionEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analysis.Analyze(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("chart analysis failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		if errors.Is(err, usecase.ErrGateway) {
			return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("AI analysis failed").WithError(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
