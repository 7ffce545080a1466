// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/mineru-bridge/internal/mineru"
	"github.com/pdiddy/mineru-bridge/internal/workflow"
	"github.com/pdiddy/mineru-bridge/pkg/types"
)

// fakeBackend serves a minimal MinerU API with a fixed final status.
type fakeBackend struct {
	finalStatus string // "completed" or "failed"; "" means never terminal
	markdown    string
}

func (f *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/extract/task", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"task_id": "task-w"})
	})
	mux.HandleFunc("GET /api/v1/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		status := f.finalStatus
		if status == "" {
			status = "pending"
		}
		if status == "failed" {
			json.NewEncoder(w).Encode(map[string]any{"status": "failed", "error": "unreadable scan"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": status})
	})
	mux.HandleFunc("GET /api/v4/extract/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"md_content": f.markdown})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// testWatcher wires a Watcher against the fake backend with temp dirs and
// fast polling.
func testWatcher(t *testing.T, backend *fakeBackend, maxAttempts int) (*Watcher, types.WatcherConfig) {
	t.Helper()
	ts := backend.server(t)
	client := mineru.NewClient(types.APIConfig{BaseURL: ts.URL, APIKey: "k"})
	wf := workflow.New(client, types.WorkflowConfig{
		PollInterval: time.Millisecond,
		MaxAttempts:  maxAttempts,
	}, nil)

	base := t.TempDir()
	cfg := types.WatcherConfig{
		InputDir:      filepath.Join(base, "input"),
		ProcessingDir: filepath.Join(base, "processing"),
		OutputDir:     filepath.Join(base, "output"),
		LogsDir:       filepath.Join(base, "logs"),
		SettleDelay:   time.Millisecond,
	}
	for _, dir := range []string{cfg.InputDir, cfg.ProcessingDir, cfg.OutputDir, cfg.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return New(cfg, wf, nil, nil), cfg
}

func dropPDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcess_Success(t *testing.T) {
	w, cfg := testWatcher(t, &fakeBackend{finalStatus: "completed", markdown: "# Scanned Doc"}, 10)
	path := dropPDF(t, cfg.InputDir, "report.pdf")

	if err := w.process(context.Background(), path); err != nil {
		t.Fatalf("process: %v", err)
	}

	md, err := os.ReadFile(filepath.Join(cfg.OutputDir, "report.md"))
	if err != nil {
		t.Fatalf("expected markdown in output dir: %v", err)
	}
	if string(md) != "# Scanned Doc" {
		t.Errorf("markdown = %q", md)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "report.pdf")); err != nil {
		t.Error("original PDF should end up in the output directory")
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "report.yaml")); err != nil {
		t.Error("metadata sidecar should be written next to the markdown")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("input file should be gone")
	}
	if _, err := os.Stat(filepath.Join(cfg.ProcessingDir, "report.pdf")); !os.IsNotExist(err) {
		t.Error("processing dir should be empty after success")
	}
}

func TestProcess_RemoteFailureReturnsFile(t *testing.T) {
	w, cfg := testWatcher(t, &fakeBackend{finalStatus: "failed"}, 10)
	path := dropPDF(t, cfg.InputDir, "bad.pdf")

	err := w.process(context.Background(), path)
	var failed *mineru.ConversionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected ConversionFailedError, got %v", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("failed PDF should be returned to the input directory")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.ProcessingDir, "bad.pdf")); !os.IsNotExist(statErr) {
		t.Error("processing dir should not keep the failed PDF")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.OutputDir, "bad.md")); !os.IsNotExist(statErr) {
		t.Error("no markdown should be written on failure")
	}
}

func TestProcess_TimeoutReturnsFile(t *testing.T) {
	w, cfg := testWatcher(t, &fakeBackend{finalStatus: ""}, 3)
	path := dropPDF(t, cfg.InputDir, "slow.pdf")

	err := w.process(context.Background(), path)
	var timeout *workflow.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeout.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", timeout.Attempts)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("timed-out PDF should be returned to the input directory")
	}
}

func TestHandle_DuplicateInFlightIsNoop(t *testing.T) {
	w, cfg := testWatcher(t, &fakeBackend{finalStatus: "completed", markdown: "# x"}, 10)
	path := dropPDF(t, cfg.InputDir, "dup.pdf")

	if !w.inflight.tryAdd("dup.pdf") {
		t.Fatal("first claim should succeed")
	}
	// Simulates a second detection event while the first is in flight.
	w.handle(context.Background(), path, false)

	if _, err := os.Stat(path); err != nil {
		t.Error("file should be untouched while its name is in flight")
	}

	w.inflight.release("dup.pdf")
	if !w.inflight.tryAdd("dup.pdf") {
		t.Error("claim should succeed again after release")
	}
}

func TestHandle_IgnoresNonPDF(t *testing.T) {
	w, cfg := testWatcher(t, &fakeBackend{finalStatus: "completed", markdown: "# x"}, 10)
	path := filepath.Join(cfg.InputDir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	w.handle(context.Background(), path, false)

	if _, err := os.Stat(path); err != nil {
		t.Error("non-PDF files should be left alone")
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.pdf", true},
		{"a.PDF", true},
		{"a.Pdf", true},
		{"a.pdf.part", false},
		{"a.txt", false},
		{"pdf", false},
	}
	for _, tt := range tests {
		if got := isPDF(tt.path); got != tt.want {
			t.Errorf("isPDF(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRun_PicksUpDroppedFile(t *testing.T) {
	w, cfg := testWatcher(t, &fakeBackend{finalStatus: "completed", markdown: "# Live"}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Let the watcher install before writing the file.
	time.Sleep(100 * time.Millisecond)
	dropPDF(t, cfg.InputDir, "live.pdf")

	mdPath := filepath.Join(cfg.OutputDir, "live.md")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(mdPath); err == nil {
			cancel()
			<-done
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher never produced the markdown output")
}

func TestRun_SweepsExistingFiles(t *testing.T) {
	w, cfg := testWatcher(t, &fakeBackend{finalStatus: "completed", markdown: "# Old"}, 10)
	dropPDF(t, cfg.InputDir, "stranded.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	mdPath := filepath.Join(cfg.OutputDir, "stranded.md")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(mdPath); err == nil {
			cancel()
			<-done
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("startup sweep never converted the stranded PDF")
}
