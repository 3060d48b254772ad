package main

import (
	"context"
	"fmt"

	"github.com/zhiyu220/MCP-demo/internal/protocol"
	"github.com/zhiyu220/MCP-demo/internal/tool/formatter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools and resources the MCP server advertises",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, err := formatter.ParseOutputFormat(output)
		if err != nil {
			return err
		}
		f, err := formatter.New(format)
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, session *protocol.Client) error {
			catalog, err := session.Catalog(ctx)
			if err != nil {
				return err
			}
			text, err := f.FormatCatalog(catalog)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().StringP("output", "o", string(formatter.OutputFormatTable), "output format (table, json, yaml)")
}
