// Package command implements the REPL's slash commands.
package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zhiyu220/MCP-demo/internal/conversation"
	"github.com/zhiyu220/MCP-demo/internal/protocol"
	"github.com/zhiyu220/MCP-demo/internal/tool"
	"github.com/zhiyu220/MCP-demo/internal/tool/formatter"

	"github.com/google/shlex"
)

type Handler interface {
	CanHandle(input string) bool
	Execute(ctx context.Context, input string) error
}

type toolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*protocol.CallResult, error)
}

type DefaultCommandHandler struct {
	tools     toolCaller
	catalog   protocol.Catalog
	registry  *tool.Registry
	state     *conversation.State
	formatter formatter.CatalogFormatter
	output    io.Writer
}

const commandOutputPrefix = "[CMD] "

// historyPreviewRunes bounds each message printed by /history.
const historyPreviewRunes = 120

func NewHandler(tools toolCaller, catalog protocol.Catalog, state *conversation.State, output io.Writer) *DefaultCommandHandler {
	return &DefaultCommandHandler{
		tools:     tools,
		catalog:   catalog,
		registry:  tool.NewRegistry(catalog.ToolNames()...),
		state:     state,
		formatter: formatter.NewTableFormatter(),
		output:    output,
	}
}

func (h *DefaultCommandHandler) CanHandle(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Execute runs one slash command. Command failures are printed, not returned;
// the error result is reserved for a broken output writer.
func (h *DefaultCommandHandler) Execute(ctx context.Context, input string) error {
	parts, parseErr := shlex.Split(input)
	if parseErr != nil {
		parts = strings.Fields(input)
	}
	if len(parts) == 0 {
		return nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	slog.Debug("Executing slash command", "cmd", cmd)

	var msg string
	var err error

	switch cmd {
	case "/tools":
		msg, err = h.formatter.FormatCatalog(h.catalog)
	case "/history":
		msg = h.handleHistory()
	case "/call":
		msg, err = h.handleCall(ctx, args)
	case "/help":
		msg = h.helpText()
	default:
		msg = fmt.Sprintf("Unknown command: %s (try /help)", cmd)
	}

	if err != nil {
		msg = fmt.Sprintf("Command failed: %v", err)
		slog.Error("Command execution failed", "cmd", cmd, "error", err)
	}

	if _, err := fmt.Fprintln(h.output, formatCommandOutput(msg)); err != nil {
		return fmt.Errorf("write command output: %w", err)
	}
	return nil
}

func (h *DefaultCommandHandler) handleHistory() string {
	if h.state == nil || h.state.Len() == 0 {
		return "History is empty."
	}
	lines := make([]string, 0, h.state.Len())
	for i, msg := range h.state.History() {
		role := string(msg.Role)
		if msg.Name != "" {
			role += ":" + msg.Name
		}
		lines = append(lines, fmt.Sprintf("%2d %-12s %s", i+1, role, preview(msg.Content)))
	}
	return strings.Join(lines, "\n")
}

// handleCall invokes a tool directly without involving the model or the history.
func (h *DefaultCommandHandler) handleCall(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "Usage: /call <tool> key=value...", nil
	}
	name := tool.NormalizeToolName(args[0])
	if !h.registry.Contains(name) {
		return fmt.Sprintf("Unknown tool: %s (available: %s)", name, strings.Join(h.registry.Names(), ", ")), nil
	}

	callArgs, err := ParseArguments(args[1:])
	if err != nil {
		return "", err
	}
	result, err := h.tools.CallTool(ctx, name, callArgs)
	if err != nil {
		return "", err
	}
	return h.formatter.FormatResult(name, result)
}

// ParseArguments turns key=value pairs into a tool argument map.
func ParseArguments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q must be key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func (h *DefaultCommandHandler) helpText() string {
	return "Available commands: /help, /tools, /history, /call <tool> key=value..."
}

func formatCommandOutput(msg string) string {
	if strings.HasPrefix(msg, commandOutputPrefix) {
		return msg
	}
	return commandOutputPrefix + msg
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= historyPreviewRunes {
		return s
	}
	return string(runes[:historyPreviewRunes-3]) + "..."
}
