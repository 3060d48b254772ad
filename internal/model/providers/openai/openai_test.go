package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhiyu220/MCP-demo/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Name    string `json:"name"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, captured *capturedRequest, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

const chatOK = `{"id":"c1","object":"chat.completion","model":"llama3.1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"tool_calls\": null}"},"finish_reason":"stop"}]}`

func history() []contract.Message {
	return []contract.Message{
		{Role: contract.RoleSystem, Content: "prompt"},
		{Role: contract.RoleUser, Content: "weather?"},
		{Role: contract.RoleTool, Name: "get_weather_now", Content: "sunny"},
	}
}

func TestGenerateOllamaKeepsToolRole(t *testing.T) {
	var captured capturedRequest
	server := newChatServer(t, &captured, http.StatusOK, chatOK)
	defer server.Close()

	p := New("ollama", server.URL+"/v1/", "llama3.1", Options{NativeToolRole: true})
	resp, err := p.Generate(context.Background(), contract.CompletionRequest{Messages: history()})
	require.NoError(t, err)

	assert.Equal(t, `{"tool_calls": null}`, resp.Content)
	assert.Equal(t, "llama3.1", captured.Model)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "tool", captured.Messages[2].Role)
	assert.Equal(t, "get_weather_now", captured.Messages[2].Name)
	assert.Equal(t, "sunny", captured.Messages[2].Content)
}

func TestGenerateOpenAIFoldsToolIntoUser(t *testing.T) {
	var captured capturedRequest
	server := newChatServer(t, &captured, http.StatusOK, chatOK)
	defer server.Close()

	p := New("sk-test", server.URL+"/v1", "gpt-4o-mini", Options{})
	_, err := p.Generate(context.Background(), contract.CompletionRequest{Model: "gpt-4o-mini", Messages: history()})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[2].Role)
	assert.Equal(t, "[tool:get_weather_now] sunny", captured.Messages[2].Content)
}

func TestGenerateNonSuccessStatus(t *testing.T) {
	var captured capturedRequest
	server := newChatServer(t, &captured, http.StatusInternalServerError, `{"error":{"message":"model crashed","type":"server_error"}}`)
	defer server.Close()

	p := New("ollama", server.URL+"/v1", "llama3.1", Options{NativeToolRole: true})
	_, err := p.Generate(context.Background(), contract.CompletionRequest{Messages: history()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai request failed")
}

func TestGenerateNoChoices(t *testing.T) {
	var captured capturedRequest
	server := newChatServer(t, &captured, http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[]}`)
	defer server.Close()

	p := New("ollama", server.URL+"/v1", "llama3.1", Options{})
	_, err := p.Generate(context.Background(), contract.CompletionRequest{Messages: history()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
