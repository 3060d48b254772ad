package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zhiyu220/MCP-demo/cmd/mcphost/runtime"
	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/protocol"

	"github.com/spf13/cobra"
)

func executeWithRuntime(cmd *cobra.Command, modelName, resumeID string, fn func(*runtime.RuntimeComponents) error) error {
	loadedCfg, err := loadConfigForCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sig := NewSignalHandler(context.Background())
	sig.Start()
	defer sig.Stop()

	components, err := runtime.NewRuntimeBuilder().
		WithContext(sig.Context()).
		WithConfig(loadedCfg).
		WithModel(modelName).
		WithResume(resumeID).
		WithOutput(os.Stdout).
		Build()
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer components.Stop()

	return fn(components)
}

// withSession dials the MCP server without building the chat runtime.
func withSession(cmd *cobra.Command, fn func(context.Context, *protocol.Client) error) error {
	loadedCfg, err := loadConfigForCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	timeout, err := config.DurationOrDefault(loadedCfg.MCP.ConnectTimeout, config.DefaultMCPConnectTimeout)
	if err != nil {
		return fmt.Errorf("mcp.connect_timeout: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	session, err := protocol.Dial(ctx, protocol.Options{
		Transport:      loadedCfg.MCP.Transport,
		URL:            loadedCfg.MCP.URL,
		ClientName:     loadedCfg.MCP.ClientName,
		ClientVersion:  runtime.Version,
		ConnectTimeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("connect to mcp server %s: %w", loadedCfg.MCP.URL, err)
	}
	defer session.Close()

	return fn(ctx, session)
}
