// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/mineru-bridge/internal/history"
	"github.com/pdiddy/mineru-bridge/internal/mineru"
	"github.com/pdiddy/mineru-bridge/internal/watcher"
	"github.com/pdiddy/mineru-bridge/internal/workflow"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a folder and convert every new PDF",
	Long: `Watch monitors the input directory for PDF files, converts each one
through the MinerU cloud API, and writes the markdown next to the original
PDF in the output directory. Files that fail or time out are returned to
the input directory for a later retry.

A PDF is claimed by moving it into the processing directory, so a glance
at the folders shows what is in flight. Run one watcher per folder.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("input-dir", "", "watched directory for incoming PDFs (overrides config)")
	watchCmd.Flags().String("output-dir", "", "directory for markdown results (overrides config)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if dir, _ := cmd.Flags().GetString("input-dir"); dir != "" {
		cfg.Watcher.InputDir = dir
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Watcher.OutputDir = dir
	}

	if cfg.API.APIKey == "" {
		return errNoAPIKey()
	}

	logger, err := buildLogger(cfg.Watcher.LogsDir)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := mineru.NewClient(cfg.API)
	wf := workflow.New(client, cfg.Workflow, logger)

	hist, err := history.Open(cfg.Watcher.LogsDir)
	if err != nil {
		logger.Warn("conversion history disabled", zap.Error(err))
		hist = nil
	} else {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watcher.New(cfg.Watcher, wf, hist, logger).Run(ctx)
}
