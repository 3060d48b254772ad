package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zhiyu220/MCP-demo/cmd/mcphost/runtime"
	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/weather"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bundled weather MCP server",
	Long:  `Serve OpenWeatherMap lookups as MCP tools over SSE or streamable HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		wcfg := loadedCfg.Weather

		if wcfg.APIKey == "" {
			slog.Warn("No weather API key configured; lookups will fail", "env", "OPENWEATHER_API_KEY")
		}

		timeout, err := config.DurationOrDefault(wcfg.Timeout, config.DefaultWeatherTimeout)
		if err != nil {
			return fmt.Errorf("weather.timeout: %w", err)
		}

		server := weather.NewServer(weather.NewClient(weather.ClientOptions{
			BaseURL: wcfg.BaseURL,
			APIKey:  wcfg.APIKey,
			Units:   wcfg.Units,
			Lang:    wcfg.Lang,
			Timeout: timeout,
		}), runtime.Version)

		sig := NewSignalHandler(context.Background())
		sig.Start()
		defer sig.Stop()

		return server.Serve(sig.Context(), weather.ServeOptions{
			Transport:  wcfg.Transport,
			ListenAddr: wcfg.ListenAddr,
			PublicURL:  wcfg.PublicURL,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("weather.listen_addr", config.DefaultWeatherListenAddr, "listen address")
	serveCmd.Flags().String("weather.public_url", config.DefaultWeatherPublicURL, "base URL advertised to SSE clients")
	serveCmd.Flags().String("weather.transport", config.DefaultWeatherTransport, "transport (sse, streamable-http)")
}
