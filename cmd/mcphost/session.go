package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/store"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
	Long:  `List, inspect and delete stored chat transcripts.`,
}

func openTranscript(cmd *cobra.Command) (store.Transcript, error) {
	loadedCfg, err := loadConfigForCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return store.Open(cmd.Context(), loadedCfg.Session)
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	Long:  `Display stored sessions, most recently active first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, err := openTranscript(cmd)
		if err != nil {
			return err
		}
		defer transcript.Close()

		sessions, err := transcript.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			fmt.Fprintln(out, "\nRun 'mcphost chat' to create your first session.")
			return nil
		}

		fmt.Fprintln(out, "Sessions:")
		for _, s := range sessions {
			fmt.Fprintf(out, "- %s  %s  %3d msgs  %s\n", s.ID, s.UpdatedAt.Local().Format(time.DateTime), s.Messages, s.Title)
		}

		fmt.Fprintf(out, "\nTotal: %d session(s)\n", len(sessions))
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, err := openTranscript(cmd)
		if err != nil {
			return err
		}
		defer transcript.Close()

		entries, err := transcript.Load(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			return err
		}

		out := cmd.OutOrStdout()
		for _, e := range entries {
			role := string(e.Role)
			if e.Name != "" {
				role += ":" + e.Name
			}
			fmt.Fprintf(out, "[%s] %s\n%s\n\n", e.Timestamp.Local().Format(time.TimeOnly), role, e.Content)
		}
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		transcript, err := openTranscript(cmd)
		if err != nil {
			return err
		}
		defer transcript.Close()

		if err := transcript.Delete(cmd.Context(), sessionID); err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				return fmt.Errorf("session %s not found", sessionID)
			}
			return fmt.Errorf("failed to delete session: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Session '%s' deleted.\n", sessionID)
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	rootCmd.AddCommand(sessionCmd)
}
