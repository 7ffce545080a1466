// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mineru-bridge/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent conversion outcomes",
	Long: `History prints the most recent entries from the local conversion
ledger written by the watcher and the HTTP service.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := history.Open(cfg.Watcher.LogsDir)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No conversions recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tFILE\tOUTCOME\tDURATION\tDETAIL")
	for _, rec := range records {
		detail := rec.TaskID
		if rec.Error != "" {
			detail = rec.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.FileName,
			rec.Outcome,
			rec.Duration.Round(time.Second),
			detail)
	}
	return w.Flush()
}
