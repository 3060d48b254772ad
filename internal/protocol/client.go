// Package protocol wraps an MCP client session behind the narrow surface the
// orchestrator needs: catalog listing and tool invocation.
package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	apperrors "github.com/zhiyu220/MCP-demo/internal/errors"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

type ToolInfo struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  []string       `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"-"`
}

type ResourceInfo struct {
	URI         string `json:"uri" yaml:"uri"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	MIMEType    string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
}

// Catalog is the advertised surface of one server at session start.
type Catalog struct {
	Tools     []ToolInfo     `json:"tools" yaml:"tools"`
	Resources []ResourceInfo `json:"resources" yaml:"resources"`
}

func (c Catalog) ToolNames() []string {
	names := make([]string, 0, len(c.Tools))
	for _, t := range c.Tools {
		names = append(names, t.Name)
	}
	return names
}

// CallResult holds the text items of a tool result in server order.
type CallResult struct {
	Content []string `json:"content"`
	IsError bool     `json:"is_error,omitempty"`
}

// FirstText returns the first content item, or false when the result is empty.
func (r *CallResult) FirstText() (string, bool) {
	if r == nil || len(r.Content) == 0 {
		return "", false
	}
	return r.Content[0], true
}

type Options struct {
	Transport      string
	URL            string
	ClientName     string
	ClientVersion  string
	ConnectTimeout time.Duration
}

type Client struct {
	mcp  *client.Client
	info mcp.Implementation
}

// Dial opens an MCP session over SSE or streamable HTTP and performs the
// initialize handshake. ctx must outlive the session for SSE transports.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, apperrors.InvalidInput("mcp url is required")
	}

	var (
		c   *client.Client
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case "", TransportSSE:
		c, err = client.NewSSEMCPClient(url)
	case TransportStreamableHTTP:
		c, err = client.NewStreamableHttpClient(url)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported mcp transport %q", opts.Transport))
	}
	if err != nil {
		return nil, apperrors.WrapWithCategory(err, "create mcp client", apperrors.ErrProtocol)
	}

	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, apperrors.WrapWithCategory(err, "start mcp transport", apperrors.ErrProtocol)
	}

	return handshake(ctx, c, opts)
}

// Connect wraps an already constructed client, such as an in-process one.
func Connect(ctx context.Context, c *client.Client, opts Options) (*Client, error) {
	if err := c.Start(ctx); err != nil {
		return nil, apperrors.WrapWithCategory(err, "start mcp transport", apperrors.ErrProtocol)
	}
	return handshake(ctx, c, opts)
}

func handshake(ctx context.Context, c *client.Client, opts Options) (*Client, error) {
	name := opts.ClientName
	if name == "" {
		name = "mcphost"
	}
	version := opts.ClientVersion
	if version == "" {
		version = "dev"
	}

	initCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: name, Version: version}

	result, err := c.Initialize(initCtx, req)
	if err != nil {
		_ = c.Close()
		return nil, apperrors.WrapWithCategory(err, "initialize mcp session", apperrors.ErrProtocol)
	}

	slog.Debug("MCP session initialized",
		"server", result.ServerInfo.Name,
		"server_version", result.ServerInfo.Version,
		"protocol", result.ProtocolVersion)

	return &Client{mcp: c, info: result.ServerInfo}, nil
}

func (c *Client) ServerName() string {
	return c.info.Name
}

func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, apperrors.WrapWithCategory(err, "list tools", apperrors.ErrProtocol)
	}

	tools := make([]ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		params := make([]string, 0, len(t.InputSchema.Properties))
		for name := range t.InputSchema.Properties {
			params = append(params, name)
		}
		sort.Strings(params)

		tools = append(tools, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
			InputSchema: t.InputSchema.Properties,
		})
	}
	return tools, nil
}

func (c *Client) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	result, err := c.mcp.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, apperrors.WrapWithCategory(err, "list resources", apperrors.ErrProtocol)
	}

	resources := make([]ResourceInfo, 0, len(result.Resources))
	for _, r := range result.Resources {
		resources = append(resources, ResourceInfo{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return resources, nil
}

// Catalog lists tools and resources. A server without resource support
// yields an empty resource list rather than an error.
func (c *Client) Catalog(ctx context.Context) (Catalog, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return Catalog{}, err
	}
	resources, err := c.ListResources(ctx)
	if err != nil {
		slog.Warn("Listing resources failed, continuing without", "error", err)
		resources = nil
	}
	return Catalog{Tools: tools, Resources: resources}, nil
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args

	result, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return nil, apperrors.WrapWithCategory(err, fmt.Sprintf("call tool %s", name), apperrors.ErrProtocol)
	}

	out := &CallResult{IsError: result.IsError}
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			out.Content = append(out.Content, text.Text)
			continue
		}
		slog.Debug("Skipping non-text tool content", "tool", name, "type", fmt.Sprintf("%T", content))
	}
	return out, nil
}

func (c *Client) Close() error {
	if c == nil || c.mcp == nil {
		return nil
	}
	return c.mcp.Close()
}
