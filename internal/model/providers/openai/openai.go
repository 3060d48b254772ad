package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/model/contract"

	"github.com/sashabaranov/go-openai"
)

type Options struct {
	// NativeToolRole sends tool results with role "tool". Ollama accepts this
	// without a preceding tool_calls message, OpenAI does not.
	NativeToolRole bool
	Timeout        time.Duration
}

type Provider struct {
	client *openai.Client
	model  string
	opts   Options
}

func New(apiKey, baseURL, model string, opts Options) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Provider{client: openai.NewClientWithConfig(cfg), model: model, opts: opts}
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, p.toChatMessage(m))
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned empty response: no choices")
	}

	return &contract.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}

func (p *Provider) toChatMessage(m contract.Message) openai.ChatCompletionMessage {
	switch m.Role {
	case contract.RoleTool:
		if p.opts.NativeToolRole {
			return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleTool, Name: m.Name, Content: m.Content}
		}
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: contract.ToolResultText(m)}
	case contract.RoleSystem:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content}
	case contract.RoleAssistant:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
	default:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content}
	}
}
