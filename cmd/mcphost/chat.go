package main

import (
	"fmt"
	"os"

	"github.com/zhiyu220/MCP-demo/cmd/mcphost/runtime"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long:  `Connect to the MCP server and chat with the configured model. The model may call any tool the server advertises.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		modelName, _ := cmd.Flags().GetString("model")
		resumeID, _ := cmd.Flags().GetString("resume")

		return executeWithRuntime(cmd, modelName, resumeID, func(r *runtime.RuntimeComponents) error {
			if err := r.Start(); err != nil {
				return fmt.Errorf("failed to start runtime components: %w", err)
			}

			repl := runtime.NewREPL(r, os.Stdin, os.Stdout)
			return repl.Start()
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("model", "", "model name from models.registry (default models.default)")
	chatCmd.Flags().String("resume", "", "resume a stored session by id")
	chatCmd.Flags().Bool("orchestrator.verbose", false, "echo raw model replies and tool results")
	chatCmd.Flags().Int("orchestrator.max_rounds", 0, "model rounds allowed per turn")
}
