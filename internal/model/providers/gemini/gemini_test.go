package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhiyu220/MCP-demo/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUsesSystemInstruction(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"tool_calls\": null}"}]}}],"modelVersion":"gemini-test"}`)
	}))
	defer server.Close()

	p, err := New(context.Background(), "test-key", server.URL, "gemini-test")
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{
			{Role: contract.RoleSystem, Content: "prompt"},
			{Role: contract.RoleUser, Content: "weather?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tool_calls": null}`, resp.Content)

	assert.Contains(t, captured, "systemInstruction")
	contents, ok := captured["contents"].([]any)
	require.True(t, ok)
	assert.Len(t, contents, 1)
}
