// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "mineru-bridge/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// APIConfig holds settings for the MinerU cloud API.
type APIConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the MinerU API base URL (default "https://mineru.net").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is the bearer token for the MinerU API. Resolution order is
	// config file, environment, then .secrets/mineru-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxFileSize is the largest PDF accepted for upload, in bytes
	// (default 50 MiB). Oversize files are rejected before any HTTP call.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`
}

// WorkflowConfig holds settings for the submit/poll/fetch sequence.
type WorkflowConfig struct {
	// PollInterval is the fixed delay between status checks (default 5s).
	// There is no backoff or jitter; the interval stays constant.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// MaxAttempts is the number of status checks before a task is
	// abandoned (default 180, roughly 15 minutes at the default interval).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// WatcherConfig holds settings for the folder watcher.
type WatcherConfig struct {
	// InputDir is the watched directory for incoming PDFs.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// ProcessingDir is where a PDF is moved while its conversion is in
	// flight. The move acts as a visible claim on the file.
	ProcessingDir string `json:"processing_dir" yaml:"processing_dir"`

	// OutputDir receives the markdown result and, on success, the
	// original PDF.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// LogsDir holds log files and the conversion history database.
	LogsDir string `json:"logs_dir" yaml:"logs_dir"`

	// SettleDelay is how long to wait after a file appears before
	// claiming it, so the writer can finish flushing (default 2s).
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// MaxWait bounds how long /convert-and-wait blocks before giving up
	// (default 15 minutes). Callers can lower it per request via the
	// max_wait query parameter, in seconds.
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`
}

// Config groups all component configurations. It is loaded once at startup
// and passed into constructors; nothing reads configuration ambiently.
type Config struct {
	API      APIConfig      `json:"api" yaml:"api"`
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
	Watcher  WatcherConfig  `json:"watcher" yaml:"watcher"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}
