package main

import (
	"fmt"
	"os"

	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mcphost",
	Short: "MCP host for tool-using chat models",
	Long: `mcphost connects a chat model to an MCP server, lets the model call
the server's tools and keeps the conversation across rounds.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mcphost/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("mcp.url", config.DefaultMCPURL, "MCP server endpoint")
	rootCmd.PersistentFlags().String("mcp.transport", config.DefaultMCPTransport, "MCP transport (sse, streamable-http)")
}
