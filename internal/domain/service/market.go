package service

import (
	"context"

	"PulseWatch/internal/domain/models"
)

// AnchorSource looks up trusted market values for a single symbol.
type AnchorSource interface {
	Anchors(ctx context.Context, assetType models.AssetType, symbol string) (models.Anchors, error)
}

// ModelGateway sends a chart image plus prompt to the LLM and returns its
// raw text reply.
type ModelGateway interface {
	AnalyzeChart(ctx context.Context, prompt, imageURL string) (string, error)
}
