package model

import (
	"context"
	"errors"
	"testing"

	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/conversation"
	apperrors "github.com/zhiyu220/MCP-demo/internal/errors"
	"github.com/zhiyu220/MCP-demo/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	reply string
	err   error
	calls []contract.CompletionRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return &contract.CompletionResponse{Content: s.reply}, nil
}

func TestRouteUsesRequestedModel(t *testing.T) {
	r := newRouter(config.ModelsConfig{})
	primary := &stubGenerator{reply: "hi"}
	r.Register("llama3.1", NewProviderAdapter("llama3.1", "ollama", primary))

	resp, err := r.Route(context.Background(), "llama3.1", contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	require.Len(t, primary.calls, 1)
	assert.Equal(t, "llama3.1", primary.calls[0].Model)
}

func TestRouteFallsBackOnFailure(t *testing.T) {
	r := newRouter(config.ModelsConfig{Fallback: "backup", MaxFallbackAttempts: 2})
	primary := &stubGenerator{err: errors.New("connection refused")}
	backup := &stubGenerator{reply: "from backup"}
	r.Register("main", NewProviderAdapter("main", "ollama", primary))
	r.Register("backup", NewProviderAdapter("backup", "openai", backup))

	resp, err := r.Route(context.Background(), "main", contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from backup", resp.Content)
	assert.Len(t, primary.calls, 1)
	require.Len(t, backup.calls, 1)
	assert.Equal(t, "backup", backup.calls[0].Model)
}

func TestRouteUnknownModelUsesFallback(t *testing.T) {
	r := newRouter(config.ModelsConfig{Fallback: "backup"})
	backup := &stubGenerator{reply: "ok"}
	r.Register("backup", NewProviderAdapter("backup", "openai", backup))

	resp, err := r.Route(context.Background(), "missing", contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestRouteUnknownModelWithoutFallback(t *testing.T) {
	r := newRouter(config.ModelsConfig{})

	_, err := r.Route(context.Background(), "missing", contract.CompletionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRouteFailureIsCategorized(t *testing.T) {
	r := newRouter(config.ModelsConfig{})
	cause := errors.New("error, status code: 429, message: slow down")
	r.Register("main", NewProviderAdapter("main", "openai", &stubGenerator{err: cause}))

	_, err := r.Route(context.Background(), "main", contract.CompletionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransient)
	assert.ErrorIs(t, err, cause)
}

func TestRouteCancelledContext(t *testing.T) {
	r := newRouter(config.ModelsConfig{})
	r.Register("main", NewProviderAdapter("main", "openai", &stubGenerator{reply: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Route(ctx, "main", contract.CompletionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewModelRouterSkipsBrokenEntries(t *testing.T) {
	r, err := NewModelRouter(config.ModelsConfig{Registry: []config.ModelRegistry{
		{Name: "llama3.1", Provider: "ollama"},
		{Name: "gpt-4o-mini", Provider: "openai"},
		{Name: "mystery", Provider: "carrier"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1"}, r.ListModels())

	_, err = NewModelRouter(config.ModelsConfig{Registry: []config.ModelRegistry{
		{Name: "gpt-4o-mini", Provider: "openai"},
	}})
	assert.ErrorIs(t, err, apperrors.ErrInternal)
}

func TestChatGenerate(t *testing.T) {
	r := newRouter(config.ModelsConfig{})
	stub := &stubGenerator{reply: `{"tool_calls": null}`}
	r.Register("llama3.1", NewProviderAdapter("llama3.1", "ollama", stub))

	chat := NewChat(r, "llama3.1")
	out, err := chat.Generate(context.Background(), []conversation.Message{
		conversation.System("prompt"),
		conversation.Tool("get_weather_now", "sunny"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tool_calls": null}`, out)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, []contract.Message{
		{Role: "system", Content: "prompt"},
		{Role: "tool", Content: "sunny", Name: "get_weather_now"},
	}, stub.calls[0].Messages)
}

func TestChatGenerateEmptyReply(t *testing.T) {
	r := newRouter(config.ModelsConfig{})
	r.Register("m", NewProviderAdapter("m", "ollama", &stubGenerator{reply: ""}))

	out, err := NewChat(r, "m").Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

type nilGenerator struct{}

func (nilGenerator) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	return nil, nil
}

func TestChatGenerateNilResponse(t *testing.T) {
	r := newRouter(config.ModelsConfig{})
	r.Register("m", NewProviderAdapter("m", "ollama", nilGenerator{}))

	_, err := NewChat(r, "m").Generate(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidModelOutput)
}
