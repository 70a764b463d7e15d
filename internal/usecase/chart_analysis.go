package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PulseWatch/internal/domain/models"
	drepo "PulseWatch/internal/domain/repository"
	domsvc "PulseWatch/internal/domain/service"
	"PulseWatch/internal/services/prediction"
	"PulseWatch/pkg/cache"
	"PulseWatch/pkg/logger"
)

// ErrGateway marks a failed model call; the HTTP layer maps it to 502.
var ErrGateway = errors.New("model gateway failed")

const anchorCachePrefix = "anchors"

// ChartAnalysis turns a chart image into a normalized prediction.
type ChartAnalysis struct {
	anchors   domsvc.AnchorSource
	gateway   domsvc.ModelGateway
	cache     cache.Service
	anchorTTL time.Duration
	metrics   drepo.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewChartAnalysis(anchors domsvc.AnchorSource, gateway domsvc.ModelGateway, c cache.Service, anchorTTL time.Duration, metrics drepo.Metrics, log *logger.Logger) *ChartAnalysis {
	return &ChartAnalysis{
		anchors:   anchors,
		gateway:   gateway,
		cache:     c,
		anchorTTL: anchorTTL,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Analyze resolves the symbol, fetches anchors, asks the model and repairs
// its reply. Only the model call can fail the request.
func (u *ChartAnalysis) Analyze(ctx context.Context, req models.AnalyzeChartRequest) (models.Prediction, error) {
	assetType, symbol := prediction.DetectAsset(req.Symbol)
	anchors := u.lookupAnchors(ctx, assetType, symbol)

	prompt := prediction.BuildPrompt(assetType, anchors)

	start := u.now()
	raw, err := u.gateway.AnalyzeChart(ctx, prompt, req.Image)
	u.metrics.RecordLatency("model_gateway", u.now().Sub(start).Seconds())
	if err != nil {
		u.metrics.RecordError("model_gateway")
		return models.Prediction{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	return u.normalize(raw, anchors), nil
}

// Normalize repairs an externally obtained model reply.
func (u *ChartAnalysis) Normalize(raw string, anchors models.Anchors) models.Prediction {
	return u.normalize(raw, anchors)
}

func (u *ChartAnalysis) normalize(raw string, anchors models.Anchors) models.Prediction {
	res := prediction.NormalizeDetailed(raw, anchors)
	u.metrics.RecordNormalize(res.Outcome.String(), res.Reason)
	if res.Outcome == prediction.OutcomeFallback {
		u.log.Warn("model reply not parseable, using fallback prediction",
			logger.String("symbol", anchors.Symbol),
			logger.String("reason", res.Reason))
	}
	return res.Prediction
}

// lookupAnchors never fails: an unreachable provider yields zero anchors,
// which the normalizer treats as unknown.
func (u *ChartAnalysis) lookupAnchors(ctx context.Context, assetType models.AssetType, symbol string) models.Anchors {
	key := cache.GenerateKeyWithParams(anchorCachePrefix, assetType, models.SymbolKey(symbol))

	var cached models.Anchors
	if u.cache != nil {
		if err := u.cache.Get(ctx, key, &cached); err == nil {
			return cached
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			u.log.Debug("anchor cache read failed", logger.String("key", key), logger.Error(err))
		}
	}

	start := u.now()
	anchors, err := u.anchors.Anchors(ctx, assetType, symbol)
	u.metrics.RecordLatency("anchors_"+string(assetType), u.now().Sub(start).Seconds())
	if err != nil {
		u.metrics.RecordError("anchors")
		u.log.Warn("anchor lookup failed, continuing without market data",
			logger.String("symbol", symbol),
			logger.String("asset_type", string(assetType)),
			logger.Error(err))
		return models.Anchors{Symbol: symbol}
	}
	if anchors.Symbol == "" {
		anchors.Symbol = symbol
	}

	if u.cache != nil && u.anchorTTL > 0 {
		if err := u.cache.Set(ctx, key, anchors, u.anchorTTL); err != nil {
			u.log.Debug("anchor cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return anchors
}
