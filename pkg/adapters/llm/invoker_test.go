package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/llm"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (s *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.messages = messages
	for _, o := range options {
		o(&s.opts)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.reply}}}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func TestInvoker_Invoke(t *testing.T) {
	model := &stubModel{reply: "billing"}
	inv := llm.New(model)

	text, err := inv.Invoke(context.Background(), ports.ModelRequest{
		ModelID:     "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   64,
		Messages: []domain.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "classify"},
			{Role: "assistant", Content: "ok"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "billing", text)

	require.Len(t, model.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[2].Role)
	assert.Equal(t, "gpt-4o-mini", model.opts.Model)
	assert.Equal(t, 64, model.opts.MaxTokens)
	assert.InDelta(t, 0.2, model.opts.Temperature, 1e-9)
}

func TestInvoker_Errors(t *testing.T) {
	inv := llm.New(&stubModel{err: errors.New("quota")})
	_, err := inv.Invoke(context.Background(), ports.ModelRequest{ModelID: "m"})
	assert.ErrorContains(t, err, "quota")

	empty := llm.New(&emptyModel{})
	_, err = empty.Invoke(context.Background(), ports.ModelRequest{ModelID: "m"})
	assert.ErrorContains(t, err, "no choices")
}

type emptyModel struct{ stubModel }

func (e *emptyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}
