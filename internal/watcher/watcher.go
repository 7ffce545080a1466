// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watcher monitors a folder for new PDFs and drives each one
// through the conversion workflow. A file is claimed by moving it into the
// processing directory; on success the markdown and the original PDF land
// in the output directory, and on failure the PDF returns to the input
// directory so a later event or run can retry it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pdiddy/mineru-bridge/internal/history"
	"github.com/pdiddy/mineru-bridge/internal/workflow"
	"github.com/pdiddy/mineru-bridge/pkg/types"
)

const defaultSettleDelay = 2 * time.Second

// Watcher runs the folder-watching conversion loop. Files are processed
// one at a time on the event goroutine; the domain is low-throughput and a
// worker pool is deliberately absent.
type Watcher struct {
	cfg      types.WatcherConfig
	wf       *workflow.Workflow
	hist     *history.Store
	logger   *zap.Logger
	inflight *inflightSet
}

// New builds a Watcher. hist may be nil to disable the conversion ledger;
// a nil logger disables logging.
func New(cfg types.WatcherConfig, wf *workflow.Workflow, hist *history.Store, logger *zap.Logger) *Watcher {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		cfg:      cfg,
		wf:       wf,
		hist:     hist,
		logger:   logger,
		inflight: newInflightSet(),
	}
}

// Run creates the working directories, sweeps PDFs already sitting in the
// input directory, then blocks handling filesystem events until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.cfg.InputDir, w.cfg.ProcessingDir, w.cfg.OutputDir, w.cfg.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.InputDir); err != nil {
		return fmt.Errorf("watching %s: %w", w.cfg.InputDir, err)
	}

	w.logger.Info("watching for PDFs",
		zap.String("input", w.cfg.InputDir),
		zap.String("output", w.cfg.OutputDir))

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			// A file moved into the watched directory surfaces as Create.
			if event.Op.Has(fsnotify.Create) {
				w.handle(ctx, event.Name, true)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// sweep processes PDFs already present in the input directory, so files
// dropped while the watcher was down are not stranded.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.InputDir)
	if err != nil {
		w.logger.Warn("input sweep failed", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		w.handle(ctx, filepath.Join(w.cfg.InputDir, entry.Name()), false)
	}
}

// handle claims and processes one detected file. Non-PDFs and names
// already in flight are ignored. The in-flight entry is released on every
// exit path so a failed file name can be retried later.
func (w *Watcher) handle(ctx context.Context, path string, settle bool) {
	if !isPDF(path) {
		return
	}
	name := filepath.Base(path)
	if !w.inflight.tryAdd(name) {
		return
	}
	defer w.inflight.release(name)

	if settle {
		// Give the writer time to finish flushing the file.
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.SettleDelay):
		}
	}

	if _, err := os.Stat(path); err != nil {
		return
	}

	w.logger.Info("new PDF detected", zap.String("file", name))
	if err := w.process(ctx, path); err != nil {
		w.logger.Error("processing failed", zap.String("file", name), zap.Error(err))
	}
}

// process runs one file through claim, convert, and file placement.
func (w *Watcher) process(ctx context.Context, path string) error {
	name := filepath.Base(path)
	procPath := filepath.Join(w.cfg.ProcessingDir, name)

	if err := os.Rename(path, procPath); err != nil {
		return fmt.Errorf("claiming %s: %w", name, err)
	}

	start := time.Now()
	out, err := w.wf.Run(ctx, procPath)
	if err != nil {
		w.record(name, "", outcomeFor(err), err.Error(), time.Since(start))
		// Return the PDF to the input directory for a later retry.
		if moveErr := os.Rename(procPath, path); moveErr != nil {
			w.logger.Error("could not return file to input",
				zap.String("file", name), zap.Error(moveErr))
		}
		return err
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	mdPath, err := workflow.WriteResult(w.cfg.OutputDir, base, name, out)
	if err != nil {
		w.record(name, out.TaskID, types.PhaseFailed, err.Error(), time.Since(start))
		if moveErr := os.Rename(procPath, path); moveErr != nil {
			w.logger.Error("could not return file to input",
				zap.String("file", name), zap.Error(moveErr))
		}
		return err
	}

	if err := os.Rename(procPath, filepath.Join(w.cfg.OutputDir, name)); err != nil {
		return fmt.Errorf("moving %s to output: %w", name, err)
	}

	w.record(name, out.TaskID, types.PhaseCompleted, "", out.Duration)
	w.logger.Info("conversion complete",
		zap.String("file", name),
		zap.String("markdown", mdPath),
		zap.Duration("duration", out.Duration))
	return nil
}

func (w *Watcher) record(name, taskID string, outcome types.TaskPhase, errMsg string, d time.Duration) {
	if w.hist == nil {
		return
	}
	rec := types.ConversionRecord{
		FileName: name,
		TaskID:   taskID,
		Outcome:  outcome,
		Error:    errMsg,
		Duration: d,
	}
	if err := w.hist.Record(rec); err != nil {
		w.logger.Warn("history record failed", zap.Error(err))
	}
}

// outcomeFor classifies a workflow error for the ledger.
func outcomeFor(err error) types.TaskPhase {
	var timeout *workflow.TimeoutError
	if errors.As(err, &timeout) {
		return types.PhaseTimedOut
	}
	return types.PhaseFailed
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
