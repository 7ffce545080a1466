// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mineru is a client for the MinerU cloud conversion API. The
// service owns all document understanding; this package only uploads PDFs,
// checks task status, and fetches markdown results. Response field names
// are probed defensively because the vendor schema is unstable.
package mineru

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/mineru-bridge/pkg/types"
)

const (
	extractEndpoint = "/api/v4/extract/task"
	statusEndpoint  = "/api/v1/tasks/"
	resultEndpoint  = "/api/v4/extract/"

	defaultTimeout = 120 * time.Second
)

// Client talks to the MinerU API. Construct it with NewClient; the zero
// value is not usable.
type Client struct {
	baseURL     string
	apiKey      string
	userAgent   string
	maxFileSize int64
	httpClient  *http.Client
}

// NewClient builds a Client from explicit configuration. A missing API key
// is not an error here; Submit, Status, and Result report ErrAPIKeyMissing
// per call so the HTTP service can surface it as a request failure.
func NewClient(cfg types.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		userAgent:   cfg.UserAgent,
		maxFileSize: cfg.MaxFileSize,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// MaxFileSize returns the configured upload size limit in bytes, 0 for
// unlimited.
func (c *Client) MaxFileSize() int64 {
	return c.maxFileSize
}

// SubmitFile uploads the PDF at path and returns the assigned task
// identifier. The size limit is enforced from the file stat before the
// file is opened or any request is sent.
func (c *Client) SubmitFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return c.Submit(ctx, filepath.Base(path), f, info.Size())
}

// Submit uploads PDF content as multipart form data to the extract
// endpoint and probes the response for a task identifier. Only HTTP 200
// and 201 are accepted.
func (c *Client) Submit(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	if !c.Configured() {
		return "", ErrAPIKeyMissing
	}
	if c.maxFileSize > 0 && size > c.maxFileSize {
		return "", &FileTooLargeError{Name: filename, Size: size, Limit: c.maxFileSize}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(pdfPartHeader(filename))
	if err != nil {
		return "", fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("reading PDF content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalizing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Reason: bodySnippet(resp.Body)}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Reason: "unparseable response: " + err.Error()}
	}

	taskID, ok := probeString(payload, taskIDPaths)
	if !ok {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Reason: "no task identifier in response"}
	}
	return taskID, nil
}

// Status queries the current state of a task. Unknown status values, HTTP
// 404, and other non-200 replies are all reported as still pending; the
// caller's poll loop decides when to stop waiting. Transport and decode
// failures return an error so they can be counted as transient.
func (c *Client) Status(ctx context.Context, taskID string) (types.TaskStatus, error) {
	if !c.Configured() {
		return types.TaskStatus{}, ErrAPIKeyMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusEndpoint+taskID, nil)
	if err != nil {
		return types.TaskStatus{}, fmt.Errorf("creating status request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.TaskStatus{}, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return types.TaskStatus{Phase: types.PhasePending, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.TaskStatus{}, fmt.Errorf("parsing status response: %w", err)
	}

	status, _ := probeString(payload, statusPaths)
	switch status {
	case "completed", "succeeded":
		return types.TaskStatus{Phase: types.PhaseCompleted}, nil
	case "failed", "error":
		msg, ok := probeString(payload, errorPaths)
		if !ok {
			msg = "unknown error"
		}
		return types.TaskStatus{Phase: types.PhaseFailed, Message: msg}, nil
	default:
		return types.TaskStatus{Phase: types.PhasePending, Message: status}, nil
	}
}

// Result fetches the markdown produced for a completed task. A 200 reply
// without extractable markdown in any known location is a
// ResultMissingError.
func (c *Client) Result(ctx context.Context, taskID string) (string, error) {
	if !c.Configured() {
		return "", ErrAPIKeyMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+resultEndpoint+taskID, nil)
	if err != nil {
		return "", fmt.Errorf("creating result request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("result request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("result request returned HTTP %d for task %s", resp.StatusCode, taskID)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("parsing result response: %w", err)
	}

	md, ok := probeString(payload, markdownPaths)
	if !ok {
		return "", &ResultMissingError{TaskID: taskID}
	}
	return md, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// pdfPartHeader builds the multipart header for the file field with an
// explicit application/pdf content type.
func pdfPartHeader(filename string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "application/pdf")
	return h
}

// bodySnippet reads up to 500 bytes of an error response for diagnostics.
func bodySnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 500))
	return strings.TrimSpace(string(data))
}
