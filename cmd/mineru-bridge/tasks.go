// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mineru-bridge/internal/mineru"
	"github.com/pdiddy/mineru-bridge/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Check the status of a remote conversion task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := taskClient()
		if err != nil {
			return err
		}

		st, err := client.Status(context.Background(), args[0])
		if err != nil {
			return err
		}

		if st.Message != "" {
			fmt.Printf("task %s: %s (%s)\n", args[0], st.Phase, st.Message)
		} else {
			fmt.Printf("task %s: %s\n", args[0], st.Phase)
		}
		if st.Phase == types.PhaseCompleted {
			fmt.Printf("fetch the markdown with: mineru-bridge result %s\n", args[0])
		}
		return nil
	},
}

var resultCmd = &cobra.Command{
	Use:   "result <task-id>",
	Short: "Fetch the markdown result of a completed task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := taskClient()
		if err != nil {
			return err
		}

		md, err := client.Result(context.Background(), args[0])
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			fmt.Print(md)
			return nil
		}
		if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Saved markdown to %s\n", out)
		return nil
	},
}

func init() {
	resultCmd.Flags().StringP("output", "o", "", "write the markdown to a file instead of stdout")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resultCmd)
}

// taskClient builds a MinerU client for the task inspection commands.
func taskClient() (*mineru.Client, error) {
	cfg := loadConfig()
	if cfg.API.APIKey == "" {
		return nil, errNoAPIKey()
	}
	return mineru.NewClient(cfg.API), nil
}
