// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mineru

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mineru-bridge/pkg/types"
)

func testClient(url string, maxFileSize int64) *Client {
	return NewClient(types.APIConfig{
		BaseURL:     url,
		APIKey:      "test-key",
		MaxFileSize: maxFileSize,
	})
}

func TestSubmit_ResponseShapes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantID  string
		wantErr bool
	}{
		{"flat task_id", http.StatusOK, `{"task_id": "t1"}`, "t1", false},
		{"nested task_id", http.StatusCreated, `{"data": {"task_id": "t2"}}`, "t2", false},
		{"flat id", http.StatusOK, `{"id": "t3"}`, "t3", false},
		{"nested id", http.StatusOK, `{"data": {"id": "t4"}}`, "t4", false},
		{"no identifier", http.StatusOK, `{"code": 0}`, "", true},
		{"server error", http.StatusInternalServerError, `oops`, "", true},
		{"unauthorized", http.StatusUnauthorized, `{"msg": "bad key"}`, "", true},
		{"not json", http.StatusOK, `<html>`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v4/extract/task", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				require.NoError(t, r.ParseMultipartForm(1<<20))
				f, header, err := r.FormFile("file")
				require.NoError(t, err)
				f.Close()
				assert.Equal(t, "doc.pdf", header.Filename)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c := testClient(ts.URL, 0)
			id, err := c.Submit(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4"), 8)
			if tt.wantErr {
				var subErr *SubmissionError
				require.Error(t, err)
				assert.ErrorAs(t, err, &subErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSubmit_OversizeFileSkipsHTTP(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"task_id": "t1"}`))
	}))
	defer ts.Close()

	c := testClient(ts.URL, 100)
	_, err := c.Submit(context.Background(), "big.pdf", strings.NewReader("x"), 101)

	var tooLarge *FileTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(101), tooLarge.Size)
	assert.Equal(t, int64(100), tooLarge.Limit)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "oversize file must not reach the network")
}

func TestSubmit_MissingAPIKey(t *testing.T) {
	c := NewClient(types.APIConfig{BaseURL: "http://localhost:0"})
	_, err := c.Submit(context.Background(), "doc.pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestSubmitFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"task_id": "from-file"}}`))
	}))
	defer ts.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 content"), 0o644))

	c := testClient(ts.URL, 0)
	id, err := c.SubmitFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", id)

	_, err = c.SubmitFile(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestSubmitFile_Oversize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.pdf")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 200)), 0o644))

	c := testClient("http://localhost:0", 100)
	_, err := c.SubmitFile(context.Background(), path)

	var tooLarge *FileTooLargeError
	assert.ErrorAs(t, err, &tooLarge)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantPhase types.TaskPhase
		wantMsg   string
	}{
		{"completed", http.StatusOK, `{"status": "completed"}`, types.PhaseCompleted, ""},
		{"succeeded", http.StatusOK, `{"status": "succeeded"}`, types.PhaseCompleted, ""},
		{"nested status", http.StatusOK, `{"data": {"status": "completed"}}`, types.PhaseCompleted, ""},
		{"failed with error", http.StatusOK, `{"status": "failed", "error": "bad input"}`, types.PhaseFailed, "bad input"},
		{"error with nested message", http.StatusOK, `{"status": "error", "data": {"error": "ocr crashed"}}`, types.PhaseFailed, "ocr crashed"},
		{"failed without message", http.StatusOK, `{"status": "failed"}`, types.PhaseFailed, "unknown error"},
		{"running is pending", http.StatusOK, `{"status": "running"}`, types.PhasePending, "running"},
		{"unknown value is pending", http.StatusOK, `{"status": "queued-deep"}`, types.PhasePending, "queued-deep"},
		{"missing status is pending", http.StatusOK, `{}`, types.PhasePending, ""},
		{"404 is pending", http.StatusNotFound, `not found`, types.PhasePending, "HTTP 404"},
		{"503 is pending", http.StatusServiceUnavailable, ``, types.PhasePending, "HTTP 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/tasks/task-9", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			st, err := testClient(ts.URL, 0).Status(context.Background(), "task-9")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPhase, st.Phase)
			assert.Equal(t, tt.wantMsg, st.Message)
		})
	}
}

func TestStatus_TransportErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	ts.Close() // connection refused

	_, err := testClient(ts.URL, 0).Status(context.Background(), "t")
	assert.Error(t, err)
}

func TestResult(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		missing bool
	}{
		{"md_content", `{"md_content": "# Doc"}`, "# Doc", false},
		{"md", `{"md": "# Doc"}`, "# Doc", false},
		{"nested md_content", `{"data": {"md_content": "# Doc"}}`, "# Doc", false},
		{"result md_content", `{"result": {"md_content": "# Doc"}}`, "# Doc", false},
		{"no content", `{"data": {"pages": 3}}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v4/extract/task-5", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			md, err := testClient(ts.URL, 0).Result(context.Background(), "task-5")
			if tt.missing {
				var missing *ResultMissingError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, "task-5", missing.TaskID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, md)
		})
	}
}

func TestResult_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL, 0).Result(context.Background(), "t")
	require.Error(t, err)
	var missing *ResultMissingError
	assert.False(t, errors.As(err, &missing), "HTTP failure is a fetch error, not a missing result")
}
