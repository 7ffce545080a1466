// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/mineru-bridge/internal/history"
	"github.com/pdiddy/mineru-bridge/internal/mineru"
	"github.com/pdiddy/mineru-bridge/internal/server"
	"github.com/pdiddy/mineru-bridge/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion workflow over HTTP",
	Long: `Serve exposes the conversion workflow as a small HTTP API: POST /convert
uploads a PDF and returns a task id, GET /status/{task_id} and
GET /result/{task_id} follow it through, and POST /convert-and-wait blocks
until the markdown is ready.

A missing API key is not fatal here; affected requests fail with HTTP 500
so the service can still report healthy to its platform.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := buildLogger(cfg.Watcher.LogsDir)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := mineru.NewClient(cfg.API)
	wf := workflow.New(client, cfg.Workflow, logger)

	hist, histErr := history.Open(cfg.Watcher.LogsDir)
	if histErr != nil {
		logger.Warn("conversion history disabled", zap.Error(histErr))
		hist = nil
	} else {
		defer hist.Close()
	}

	app := server.NewApp(cfg, client, wf, hist, logger)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: app.Router(),
		// convert-and-wait holds the connection for the whole remote
		// conversion, so only the header read gets a tight timeout.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return srv.Close()
	}
	logger.Info("server stopped")
	return nil
}
