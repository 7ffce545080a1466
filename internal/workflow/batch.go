// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Failed
}

// HasFailures reports whether any files failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertBatch runs the workflow for each PDF path in order, writing
// results to outDir and printing per-file status to w. It continues after
// individual failures and returns a summary.
func ConvertBatch(ctx context.Context, wf *Workflow, paths []string, outDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		fmt.Fprintf(w, "converting: %s\n", base)

		out, err := wf.Run(ctx, path)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
			result.Failed++
			continue
		}

		mdPath, err := WriteResult(outDir, base, filepath.Base(path), out)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
			result.Failed++
			continue
		}

		fmt.Fprintf(w, "converted: %s -> %s (task %s, %s)\n", base, mdPath, out.TaskID, out.Duration.Round(time.Second))
		result.Converted++
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		result.Converted, result.Failed, result.Total())
	return result
}
