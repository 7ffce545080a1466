// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow drives the submit, poll, fetch sequence shared by the
// folder watcher and the HTTP service. Polling is a fixed-interval sleep
// loop with a hard attempt budget; there is no backoff and no jitter,
// which is enough for a low-volume conversion tool.
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/mineru-bridge/internal/mineru"
	"github.com/pdiddy/mineru-bridge/pkg/types"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 180

	// progressEvery controls how often a "still waiting" line is logged,
	// in poll attempts.
	progressEvery = 6
)

// TimeoutError indicates the attempt budget was exhausted before the task
// reached a terminal state. The task is abandoned, not cancelled; it may
// still finish remotely.
type TimeoutError struct {
	TaskID   string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for task %s after %d attempts", e.TaskID, e.Attempts)
}

// Outcome is a successful conversion: the markdown text plus bookkeeping.
type Outcome struct {
	TaskID   string
	Markdown string
	Duration time.Duration
}

// Workflow runs conversions against a MinerU client.
type Workflow struct {
	client *mineru.Client
	cfg    types.WorkflowConfig
	logger *zap.Logger
}

// New builds a Workflow. Zero config fields fall back to the defaults
// (5s interval, 180 attempts). A nil logger disables logging.
func New(client *mineru.Client, cfg types.WorkflowConfig, logger *zap.Logger) *Workflow {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{client: client, cfg: cfg, logger: logger}
}

// PollInterval returns the effective poll interval.
func (w *Workflow) PollInterval() time.Duration {
	return w.cfg.PollInterval
}

// Run submits the PDF at path and blocks until the conversion reaches a
// terminal state. On success it returns the markdown; otherwise the error
// identifies whether submission, the remote conversion, result retrieval,
// or the attempt budget was at fault.
func (w *Workflow) Run(ctx context.Context, path string) (Outcome, error) {
	start := time.Now()

	taskID, err := w.client.SubmitFile(ctx, path)
	if err != nil {
		return Outcome{}, fmt.Errorf("submitting %s: %w", path, err)
	}
	w.logger.Info("upload accepted", zap.String("file", path), zap.String("task_id", taskID))

	md, err := w.Await(ctx, taskID, w.cfg.MaxAttempts)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{TaskID: taskID, Markdown: md, Duration: time.Since(start)}, nil
}

// Await polls the task at the configured interval until it completes,
// fails, or maxAttempts polls have been spent. Transient poll errors are
// logged and retried; they count against the budget like any other
// non-terminal poll. When maxAttempts is 0 the configured default applies.
func (w *Workflow) Await(ctx context.Context, taskID string, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = w.cfg.MaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(w.cfg.PollInterval):
		}

		status, err := w.client.Status(ctx, taskID)
		if err != nil {
			w.logger.Warn("status check failed",
				zap.String("task_id", taskID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		switch status.Phase {
		case types.PhaseCompleted:
			md, err := w.client.Result(ctx, taskID)
			if err != nil {
				return "", fmt.Errorf("fetching result for task %s: %w", taskID, err)
			}
			return md, nil
		case types.PhaseFailed:
			return "", &mineru.ConversionFailedError{TaskID: taskID, Message: status.Message}
		}

		if attempt%progressEvery == 0 {
			w.logger.Info("still waiting for conversion",
				zap.String("task_id", taskID),
				zap.Duration("elapsed", time.Duration(attempt)*w.cfg.PollInterval))
		}
	}

	return "", &TimeoutError{TaskID: taskID, Attempts: maxAttempts}
}
