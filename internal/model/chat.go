package model

import (
	"context"

	"github.com/zhiyu220/MCP-demo/internal/conversation"
	apperrors "github.com/zhiyu220/MCP-demo/internal/errors"
	"github.com/zhiyu220/MCP-demo/internal/model/contract"
)

// Chat binds a router to one model name and speaks conversation messages.
type Chat struct {
	router ModelRouter
	model  string
}

func NewChat(router ModelRouter, model string) *Chat {
	return &Chat{router: router, model: model}
}

func (c *Chat) Model() string {
	return c.model
}

// Generate sends the full history and returns the raw reply text, which may be empty.
func (c *Chat) Generate(ctx context.Context, history []conversation.Message) (string, error) {
	messages := make([]contract.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, contract.Message{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}

	resp, err := c.router.Route(ctx, c.model, contract.CompletionRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", apperrors.InvalidModelOutput("model returned no response")
	}
	// Empty content is a valid reply; it parses to an empty final answer.
	return resp.Content, nil
}
