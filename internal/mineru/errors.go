// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mineru

import (
	"errors"
	"fmt"
)

// ErrAPIKeyMissing indicates no API key was configured. The watcher treats
// this as fatal at startup; the HTTP service maps it to a per-request 500.
var ErrAPIKeyMissing = errors.New("mineru API key not configured")

// FileTooLargeError indicates a PDF exceeded the configured upload limit.
// It is raised before any HTTP request is made.
type FileTooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %s too large: %.1f MB (limit %.1f MB)",
		e.Name, float64(e.Size)/(1024*1024), float64(e.Limit)/(1024*1024))
}

// SubmissionError indicates the upload was rejected or the response did not
// contain a task identifier in any known location.
type SubmissionError struct {
	StatusCode int
	Reason     string
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submission failed (HTTP %d): %s", e.StatusCode, e.Reason)
	}
	return "submission failed: " + e.Reason
}

// ConversionFailedError indicates the remote service reported a terminal
// failure for the task.
type ConversionFailedError struct {
	TaskID  string
	Message string
}

func (e *ConversionFailedError) Error() string {
	return fmt.Sprintf("conversion failed for task %s: %s", e.TaskID, e.Message)
}

// ResultMissingError indicates the task completed but the result payload
// contained no extractable markdown in any known location.
type ResultMissingError struct {
	TaskID string
}

func (e *ResultMissingError) Error() string {
	return fmt.Sprintf("no markdown content in result for task %s", e.TaskID)
}
