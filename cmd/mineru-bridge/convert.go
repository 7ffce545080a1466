// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mineru-bridge/internal/mineru"
	"github.com/pdiddy/mineru-bridge/internal/workflow"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Convert PDF files to Markdown in one batch",
	Long: `Convert uploads each PDF to the MinerU cloud API, waits for the
conversion, and writes the markdown (plus a metadata sidecar) into the
output directory. Failures are reported per file and do not stop the
batch.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("output-dir", "", "directory for markdown results (overrides config)")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more PDF paths")
	}

	cfg := loadConfig()
	outDir := cfg.Watcher.OutputDir
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		outDir = dir
	}

	if cfg.API.APIKey == "" {
		return errNoAPIKey()
	}

	client := mineru.NewClient(cfg.API)
	wf := workflow.New(client, cfg.Workflow, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := workflow.ConvertBatch(ctx, wf, args, outDir, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}
