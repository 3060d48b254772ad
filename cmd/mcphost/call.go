package main

import (
	"context"
	"fmt"

	"github.com/zhiyu220/MCP-demo/internal/orchestrator/command"
	"github.com/zhiyu220/MCP-demo/internal/protocol"
	"github.com/zhiyu220/MCP-demo/internal/tool/formatter"

	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <tool> [key=value...]",
	Short: "Invoke one MCP tool directly",
	Long:  `Call a tool on the MCP server without involving the model, e.g. 'mcphost call get_weather_now city=Taipei'.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		callArgs, err := command.ParseArguments(args[1:])
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		raw := output == "raw"

		return withSession(cmd, func(ctx context.Context, session *protocol.Client) error {
			result, err := session.CallTool(ctx, name, callArgs)
			if err != nil {
				return err
			}

			if raw {
				text, ok := result.FirstText()
				if !ok {
					return fmt.Errorf("tool %s returned no text content", name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}

			format, err := formatter.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			f, err := formatter.New(format)
			if err != nil {
				return err
			}
			text, err := f.FormatResult(name, result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringP("output", "o", "raw", "output format (raw, table, json, yaml)")
}
