package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName = "weather-demo"

	ToolNow        = "get_weather_now"
	ToolForecast4D = "get_weather_forecast_4days"
	ToolForecast1M = "get_weather_forecast_1month"

	AboutURI = "weather://about"
)

// Provider is the lookup surface the tools delegate to.
type Provider interface {
	Now(ctx context.Context, city string) (string, error)
	Forecast4Days(ctx context.Context, city string) (string, error)
	ForecastMonth(ctx context.Context, city string) (string, error)
}

// Server exposes a Provider as MCP tools plus a static about resource.
type Server struct {
	provider  Provider
	mcpServer *server.MCPServer
}

func NewServer(provider Provider, version string) *Server {
	s := &Server{
		provider: provider,
		mcpServer: server.NewMCPServer(ServerName, version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	cityArg := mcp.WithString("city",
		mcp.Required(),
		mcp.Description("City name in English, e.g. Taipei"),
	)

	s.mcpServer.AddTool(mcp.NewTool(ToolNow,
		mcp.WithDescription("Get the current weather for a city"),
		cityArg,
	), s.handler(ToolNow, s.provider.Now))

	s.mcpServer.AddTool(mcp.NewTool(ToolForecast4D,
		mcp.WithDescription("Get the 4-day forecast for a city in 3-hour steps"),
		cityArg,
	), s.handler(ToolForecast4D, s.provider.Forecast4Days))

	s.mcpServer.AddTool(mcp.NewTool(ToolForecast1M,
		mcp.WithDescription("Get the daily forecast for the coming month for a city"),
		cityArg,
	), s.handler(ToolForecast1M, s.provider.ForecastMonth))
}

// handler reports lookup failures as result text so the model can read them.
func (s *Server) handler(name string, lookup func(context.Context, string) (string, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		city, err := req.RequireString("city")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, err := lookup(ctx, city)
		if err != nil {
			slog.Warn("Weather lookup failed", "tool", name, "city", city, "error", err)
			return mcp.NewToolResultText(failureText(err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func failureText(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("cannot get weather data: %s", apiErr.Error())
	}
	return fmt.Sprintf("weather API call failed: %v", err)
}

const aboutText = `Weather data is provided by OpenWeatherMap (https://openweathermap.org).
Tools take a single "city" argument; use the English city name.`

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(AboutURI, "About the weather provider",
		mcp.WithResourceDescription("Data source and usage notes for the weather tools"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      AboutURI,
				MIMEType: "text/plain",
				Text:     aboutText,
			},
		}, nil
	})
}
