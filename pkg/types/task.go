// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TaskPhase is the lifecycle phase of a remote conversion task. The remote
// service assigns an opaque task identifier on submission; the phase then
// advances only through polling until a terminal value is reached.
type TaskPhase string

const (
	PhaseSubmitted TaskPhase = "submitted"
	PhasePending   TaskPhase = "pending"
	PhaseCompleted TaskPhase = "completed"
	PhaseFailed    TaskPhase = "failed"
	PhaseTimedOut  TaskPhase = "timed_out"
)

// Terminal reports whether the phase is final for a task.
func (p TaskPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseTimedOut
}

// TaskStatus is one poll snapshot of a remote task. Message carries the
// remote error text when the phase is PhaseFailed.
type TaskStatus struct {
	Phase   TaskPhase `json:"phase"`
	Message string    `json:"message,omitempty"`
}

// ResultMeta is the YAML sidecar written next to each converted markdown
// file, recording where the text came from.
type ResultMeta struct {
	// TaskID is the remote task identifier that produced the markdown.
	TaskID string `json:"task_id" yaml:"task_id"`

	// SourcePDF is the file name of the originating PDF.
	SourcePDF string `json:"source_pdf" yaml:"source_pdf"`

	// Duration is how long the conversion took, submission to fetch.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// ConvertedAt is when the result was retrieved.
	ConvertedAt time.Time `json:"converted_at" yaml:"converted_at"`
}

// ConversionRecord is one row of the local conversion history ledger.
type ConversionRecord struct {
	// FileName is the base name of the submitted PDF.
	FileName string `json:"file_name" yaml:"file_name"`

	// TaskID is the remote task identifier, empty if submission failed.
	TaskID string `json:"task_id,omitempty" yaml:"task_id,omitempty"`

	// Outcome is the terminal phase the task reached.
	Outcome TaskPhase `json:"outcome" yaml:"outcome"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Duration is how long the attempt took.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
