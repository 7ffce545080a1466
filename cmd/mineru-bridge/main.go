// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mineru-bridge CLI. The binary
// bridges local PDF files to the MinerU cloud conversion API, either by
// watching a folder (watch), serving HTTP endpoints (serve), or converting
// files one-off (convert).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/mineru-bridge/internal/secrets"
	"github.com/pdiddy/mineru-bridge/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the mineru-bridge CLI.
var rootCmd = &cobra.Command{
	Use:   "mineru-bridge",
	Short: "Convert PDFs to Markdown through the MinerU cloud API",
	Long: `mineru-bridge uploads PDFs to the MinerU cloud service, polls until the
conversion finishes, and retrieves the markdown result. All document
understanding happens remotely; this tool handles upload, polling, result
retrieval, and local file bookkeeping.

Run "watch" to convert every PDF dropped into a folder, "serve" to expose
the same workflow over HTTP, or "convert" for a one-off batch.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mineru-bridge.yaml or ~/.config/mineru-bridge/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mineru-bridge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mineru-bridge"))
		}
	}

	viper.SetEnvPrefix("MINERU_BRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("api.base_url", "https://mineru.net")
	viper.SetDefault("api.timeout", 120*time.Second)
	viper.SetDefault("api.user_agent", "mineru-bridge/"+version)
	viper.SetDefault("api.max_file_size", int64(50*1024*1024))
	viper.SetDefault("workflow.poll_interval", 5*time.Second)
	viper.SetDefault("workflow.max_attempts", 180)
	viper.SetDefault("watcher.input_dir", "input")
	viper.SetDefault("watcher.processing_dir", "processing")
	viper.SetDefault("watcher.output_dir", "output")
	viper.SetDefault("watcher.logs_dir", "logs")
	viper.SetDefault("watcher.settle_delay", 2*time.Second)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.max_wait", 15*time.Minute)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the viper state into an explicit Config value.
// The API key falls back to the .secrets/ directory when neither the
// config file nor the environment provides one.
func loadConfig() types.Config {
	cfg := types.Config{
		API: types.APIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("api.timeout"),
				UserAgent: viper.GetString("api.user_agent"),
			},
			BaseURL:     viper.GetString("api.base_url"),
			APIKey:      viper.GetString("api.key"),
			MaxFileSize: viper.GetInt64("api.max_file_size"),
		},
		Workflow: types.WorkflowConfig{
			PollInterval: viper.GetDuration("workflow.poll_interval"),
			MaxAttempts:  viper.GetInt("workflow.max_attempts"),
		},
		Watcher: types.WatcherConfig{
			InputDir:      viper.GetString("watcher.input_dir"),
			ProcessingDir: viper.GetString("watcher.processing_dir"),
			OutputDir:     viper.GetString("watcher.output_dir"),
			LogsDir:       viper.GetString("watcher.logs_dir"),
			SettleDelay:   viper.GetDuration("watcher.settle_delay"),
		},
		Server: types.ServerConfig{
			Addr:    viper.GetString("server.addr"),
			MaxWait: viper.GetDuration("server.max_wait"),
		},
	}

	if cfg.API.APIKey == "" {
		cfg.API.APIKey = secrets.APIKey(loadedSecrets)
	}
	return cfg
}

// errNoAPIKey is the startup failure for commands that cannot run without
// credentials.
func errNoAPIKey() error {
	return fmt.Errorf("MinerU API key not configured: set api.key in the config file, MINERU_BRIDGE_API_KEY in the environment, or %s%s", secrets.DefaultDir, secrets.APIKeyFile)
}

// buildLogger creates the daemon logger writing JSON to stderr and to a
// dated log file under logsDir.
func buildLogger(logsDir string) (*zap.Logger, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory %s: %w", logsDir, err)
	}
	logFile := filepath.Join(logsDir, "converter_"+time.Now().Format("20060102")+".log")

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr", logFile}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
