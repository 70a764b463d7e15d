package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	domsvc "PulseWatch/internal/domain/service"
)

var (
	ErrNotConfigured = errors.New("llm gateway api key not configured")
	ErrEmptyReply    = errors.New("llm gateway returned no choices")
)

// Gateway talks to an OpenAI-compatible chat completions endpoint with
// vision support.
type Gateway struct {
	client *openai.Client
	model  string
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func New(cfg Config) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Gateway{client: openai.NewClientWithConfig(oc), model: cfg.Model}, nil
}

func (g *Gateway) AnalyzeChart(ctx context.Context, prompt, imageURL string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    imageURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

// Disabled stands in when no API key is configured so the HTTP layer can
// answer with a clear error instead of failing at startup.
type Disabled struct{}

func (Disabled) AnalyzeChart(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

var (
	_ domsvc.ModelGateway = (*Gateway)(nil)
	_ domsvc.ModelGateway = Disabled{}
)
