package runtime

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/conversation"
	"github.com/zhiyu220/MCP-demo/internal/orchestrator"
	"github.com/zhiyu220/MCP-demo/internal/protocol"
	"github.com/zhiyu220/MCP-demo/internal/store"
	"github.com/zhiyu220/MCP-demo/internal/weather"

	"github.com/mark3labs/mcp-go/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	replies []string
	err     error
}

func (m *scriptedModel) Generate(ctx context.Context, history []conversation.Message) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next, nil
}

func inProcessDialer(t *testing.T) Dialer {
	t.Helper()
	owm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weather":[{"description":"clear sky"}],"main":{"temp":28.4}}`))
	}))
	t.Cleanup(owm.Close)

	srv := weather.NewServer(weather.NewClient(weather.ClientOptions{BaseURL: owm.URL, APIKey: "k"}), "test")
	return func(ctx context.Context, opts protocol.Options) (*protocol.Client, error) {
		inproc, err := client.NewInProcessClient(srv.MCPServer())
		if err != nil {
			return nil, err
		}
		return protocol.Connect(ctx, inproc, opts)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Models: config.ModelsConfig{Default: "scripted"},
		MCP:    config.MCPConfig{URL: "inproc://weather"},
		Orchestrator: config.OrchestratorConfig{
			MaxRounds:    2,
			ExitKeywords: []string{"exit", "退出"},
		},
		Session: config.SessionConfig{Store: config.SessionStoreFile, Path: t.TempDir()},
	}
}

func build(t *testing.T, cfg *config.Config, m orchestrator.Model, out *bytes.Buffer, resume string) *RuntimeComponents {
	t.Helper()
	components, err := NewRuntimeBuilder().
		WithConfig(cfg).
		WithDialer(inProcessDialer(t)).
		WithModelClient(m).
		WithOutput(out).
		WithResume(resume).
		Build()
	require.NoError(t, err)
	t.Cleanup(components.Stop)
	return components
}

const nowCall = `{"tool_calls": [{"name": "get_weather_now", "arguments": {"city": "Taipei"}}]}`

func TestBuilderRequiresConfig(t *testing.T) {
	_, err := NewRuntimeBuilder().Build()
	assert.Error(t, err)
}

func TestBuildSeedsSystemPrompt(t *testing.T) {
	out := &bytes.Buffer{}
	c := build(t, testConfig(t), &scriptedModel{}, out, "")

	assert.NotEmpty(t, c.SessionID)
	assert.False(t, c.Resumed)
	assert.Equal(t, 3, c.Registry.Len())
	require.Equal(t, 1, c.State.Len())
	first := c.State.History()[0]
	assert.Equal(t, conversation.RoleSystem, first.Role)
	assert.Contains(t, first.Content, weather.ToolForecast4D)
	assert.Contains(t, first.Content, weather.AboutURI)
	assert.Nil(t, c.Metrics)
}

func TestREPLRunsTurnAndExits(t *testing.T) {
	out := &bytes.Buffer{}
	cfg := testConfig(t)
	cfg.Orchestrator.Verbose = true
	c := build(t, cfg, &scriptedModel{replies: []string{nowCall, "Clear, 28°C."}}, out, "")

	in := strings.NewReader("What's the weather in Taipei?\n\nEXIT\nnever read\n")
	require.NoError(t, NewREPL(c, in, out).Start())

	text := out.String()
	assert.Contains(t, text, "Clear, 28°C.")
	assert.Contains(t, text, "[model round 1]")
	assert.Contains(t, text, "[tool get_weather_now]")
	assert.Equal(t, 4, c.State.Len())

	entries, err := c.Transcript.Load(context.Background(), c.SessionID)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestREPLSlashCommand(t *testing.T) {
	out := &bytes.Buffer{}
	c := build(t, testConfig(t), &scriptedModel{}, out, "")

	in := strings.NewReader("/call get_weather_now city=Taipei\n退出\n")
	require.NoError(t, NewREPL(c, in, out).Start())

	assert.Contains(t, out.String(), "clear sky")
	assert.Equal(t, 1, c.State.Len())
}

func TestREPLFatalErrorEndsLoop(t *testing.T) {
	out := &bytes.Buffer{}
	c := build(t, testConfig(t), &scriptedModel{replies: []string{
		`{"tool_calls": [{"name": "launch_rocket", "arguments": {}}]}`,
	}}, out, "")

	in := strings.NewReader("go\nexit\n")
	err := NewREPL(c, in, out).Start()
	require.Error(t, err)
	assert.Equal(t, orchestrator.KindUnregisteredTool, orchestrator.KindOf(err))
}

func TestREPLMaxRoundsContinues(t *testing.T) {
	out := &bytes.Buffer{}
	c := build(t, testConfig(t), &scriptedModel{replies: []string{nowCall, nowCall, "second turn answer"}}, out, "")

	in := strings.NewReader("loop\nagain\nexit\n")
	require.NoError(t, NewREPL(c, in, out).Start())

	text := out.String()
	assert.Contains(t, text, string(orchestrator.KindMaxRounds))
	assert.Contains(t, text, "second turn answer")
}

func TestREPLEndsOnEOF(t *testing.T) {
	out := &bytes.Buffer{}
	c := build(t, testConfig(t), &scriptedModel{}, out, "")
	require.NoError(t, NewREPL(c, strings.NewReader(""), out).Start())
}

func TestResumeReplacesSystemPrompt(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	fs, err := store.NewFileStore(cfg.Session.Path)
	require.NoError(t, err)
	require.NoError(t, fs.Append(ctx, "old-session", conversation.System("stale prompt")))
	require.NoError(t, fs.Append(ctx, "old-session", conversation.User("hi")))
	require.NoError(t, fs.Append(ctx, "old-session", conversation.Assistant("hello")))

	out := &bytes.Buffer{}
	c := build(t, cfg, &scriptedModel{}, out, "old-session")

	assert.True(t, c.Resumed)
	assert.Equal(t, "old-session", c.SessionID)
	history := c.State.History()
	require.Len(t, history, 3)
	assert.NotEqual(t, "stale prompt", history[0].Content)
	assert.Equal(t, conversation.User("hi"), history[1])
}

func TestResumeUnknownSession(t *testing.T) {
	_, err := NewRuntimeBuilder().
		WithConfig(testConfig(t)).
		WithDialer(inProcessDialer(t)).
		WithModelClient(&scriptedModel{}).
		WithOutput(&bytes.Buffer{}).
		WithResume("missing").
		Build()
	assert.ErrorContains(t, err, "not found")
}

func TestMetricsEnabledByAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MetricsAddr = "127.0.0.1:0"
	c := build(t, cfg, &scriptedModel{}, &bytes.Buffer{}, "")
	assert.NotNil(t, c.Metrics)
}
