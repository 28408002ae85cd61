// Package llm adapts langchaingo chat models to the ModelInvoker port.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Invoker implements ports.ModelInvoker over any langchaingo model.
type Invoker struct {
	model  llms.Model
	logger *slog.Logger
}

// Option configures the Invoker.
type Option func(*Invoker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) { i.logger = l }
}

// New wraps a langchaingo model.
func New(model llms.Model, opts ...Option) *Invoker {
	i := &Invoker{model: model, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// OpenAIConfig addresses an OpenAI-compatible endpoint (OpenAI, Ollama, vLLM).
type OpenAIConfig struct {
	BaseURL string
	Token   string
	Model   string
}

// NewOpenAI builds an Invoker over an OpenAI-compatible endpoint.
func NewOpenAI(cfg OpenAIConfig, opts ...Option) (*Invoker, error) {
	var clientOpts []openai.Option
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Token != "" {
		clientOpts = append(clientOpts, openai.WithToken(cfg.Token))
	}
	if cfg.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(cfg.Model))
	}
	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return New(model, opts...), nil
}

// Invoke sends the conversation and returns the first choice's text.
func (i *Invoker) Invoke(ctx context.Context, req ports.ModelRequest) (string, error) {
	messages := Messages(req.Messages)

	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.ModelID != "" {
		callOpts = append(callOpts, llms.WithModel(req.ModelID))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := i.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", req.ModelID, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	i.logger.DebugContext(ctx, "model invoked", "model_id", req.ModelID, "messages", len(messages))
	return resp.Choices[0].Content, nil
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant", "ai":
		return llms.ChatMessageTypeAI
	case "tool":
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

var _ ports.ModelInvoker = (*Invoker)(nil)

// Messages converts domain messages for callers that talk to langchaingo directly.
func Messages(msgs []domain.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llms.TextParts(messageType(m.Role), m.Content))
	}
	return out
}
