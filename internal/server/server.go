// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the conversion workflow over HTTP. Handlers are
// stateless shims onto the client and workflow; every task lives entirely
// in the remote service and is addressed by its opaque identifier.
package server

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/mineru-bridge/internal/history"
	"github.com/pdiddy/mineru-bridge/internal/mineru"
	"github.com/pdiddy/mineru-bridge/internal/workflow"
	"github.com/pdiddy/mineru-bridge/pkg/types"
)

const serviceName = "mineru-bridge"

// App holds the HTTP service and its collaborators.
type App struct {
	logger *zap.Logger
	client *mineru.Client
	wf     *workflow.Workflow
	hist   *history.Store

	router *chi.Mux

	maxFileSize    int64
	defaultMaxWait time.Duration
}

// NewApp wires the router. hist may be nil; a nil logger disables logging.
func NewApp(cfg types.Config, client *mineru.Client, wf *workflow.Workflow, hist *history.Store, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxWait := cfg.Server.MaxWait
	if maxWait <= 0 {
		maxWait = 15 * time.Minute
	}

	a := &App{
		logger:         logger,
		client:         client,
		wf:             wf,
		hist:           hist,
		router:         chi.NewRouter(),
		maxFileSize:    cfg.API.MaxFileSize,
		defaultMaxWait: maxWait,
	}
	a.registerRoutes()
	return a
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/health", a.health)
	a.router.Get("/", a.index)
	a.router.Post("/convert", a.convert)
	a.router.Get("/status/{taskID}", a.status)
	a.router.Get("/result/{taskID}", a.result)
	a.router.Post("/convert-and-wait", a.convertAndWait)
}

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (a *App) index(w http.ResponseWriter, _ *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"status":  "running",
		"endpoints": map[string]string{
			"POST /convert":          "upload a PDF and get a task_id",
			"GET /status/{task_id}":  "check conversion status",
			"GET /result/{task_id}":  "fetch the markdown result",
			"POST /convert-and-wait": "upload and block until completion",
		},
	})
}

// convert uploads the PDF and returns the task identifier without waiting.
func (a *App) convert(w http.ResponseWriter, r *http.Request) {
	file, header, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	taskID, err := a.client.Submit(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		a.respondError(w, err)
		return
	}

	a.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"task_id":  taskID,
		"filename": header.Filename,
		"status":   string(types.PhaseSubmitted),
		"message":  "PDF uploaded. Use /status/{task_id} to check progress.",
	})
}

func (a *App) status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	st, err := a.client.Status(r.Context(), taskID)
	if err != nil {
		a.respondError(w, err)
		return
	}

	a.respondJSON(w, http.StatusOK, map[string]any{
		"task_id":  taskID,
		"status":   string(st.Phase),
		"message":  st.Message,
		"complete": st.Phase == types.PhaseCompleted,
	})
}

func (a *App) result(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	md, err := a.client.Result(r.Context(), taskID)
	if err != nil {
		a.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

// convertAndWait uploads the PDF and blocks the request until the task
// reaches a terminal state or max_wait elapses. The caller caps the wait
// via ?max_wait=<seconds>; the attempt budget is max_wait divided by the
// poll interval.
func (a *App) convertAndWait(w http.ResponseWriter, r *http.Request) {
	file, header, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	maxWait := a.defaultMaxWait
	if raw := r.URL.Query().Get("max_wait"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			a.respondJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "max_wait must be a positive number of seconds",
			})
			return
		}
		maxWait = time.Duration(secs) * time.Second
	}

	start := time.Now()
	taskID, err := a.client.Submit(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		a.respondError(w, err)
		return
	}

	attempts := int(maxWait / a.wf.PollInterval())
	if attempts < 1 {
		attempts = 1
	}

	md, err := a.wf.Await(r.Context(), taskID, attempts)
	a.record(header.Filename, taskID, time.Since(start), err)
	if err != nil {
		a.respondError(w, err)
		return
	}

	a.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"task_id":  taskID,
		"filename": header.Filename,
		"markdown": md,
	})
}

// readUpload parses the multipart "file" field and enforces the size limit
// before anything is sent upstream. It writes the error response itself
// when returning ok=false.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if a.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxFileSize+4096)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		// MaxBytesReader trips inside the multipart parser, so the size
		// limit has to be picked out of the parse error here.
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			a.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
				"success": false,
				"error":   "file too large",
			})
			return nil, nil, false
		}
		a.respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid multipart upload: " + err.Error(),
		})
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "a PDF file field named \"file\" is required",
		})
		return nil, nil, false
	}

	if a.maxFileSize > 0 && header.Size > a.maxFileSize {
		file.Close()
		a.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
			"success": false,
			"error":   "file too large",
		})
		return nil, nil, false
	}

	return file, header, true
}

func (a *App) record(filename, taskID string, d time.Duration, err error) {
	if a.hist == nil {
		return
	}
	rec := types.ConversionRecord{
		FileName: filename,
		TaskID:   taskID,
		Outcome:  types.PhaseCompleted,
		Duration: d,
	}
	if err != nil {
		rec.Error = err.Error()
		var timeout *workflow.TimeoutError
		if errors.As(err, &timeout) {
			rec.Outcome = types.PhaseTimedOut
		} else {
			rec.Outcome = types.PhaseFailed
		}
	}
	if recErr := a.hist.Record(rec); recErr != nil {
		a.logger.Warn("history record failed", zap.Error(recErr))
	}
}

// respondError maps workflow and client errors onto HTTP statuses:
// missing configuration 500, oversize 413, timeout 408, missing result
// 404, and everything the upstream service rejected 502.
func (a *App) respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway

	var (
		tooLarge *mineru.FileTooLargeError
		missing  *mineru.ResultMissingError
		timeout  *workflow.TimeoutError
	)
	switch {
	case errors.Is(err, mineru.ErrAPIKeyMissing):
		status = http.StatusInternalServerError
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &missing):
		status = http.StatusNotFound
	case errors.As(err, &timeout):
		status = http.StatusRequestTimeout
	}

	a.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	a.respondJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func (a *App) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode json", zap.Error(err))
	}
}
