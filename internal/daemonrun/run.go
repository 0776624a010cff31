// Package daemonrun owns the process-level runtime of `reelsub serve`:
// logger and metrics construction, signal handling, and the daemon
// lifecycle.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"reelsub/internal/app"
	"reelsub/internal/config"
	"reelsub/internal/daemon"
	"reelsub/internal/fileutil"
	"reelsub/internal/logging"
	"reelsub/internal/metrics"
	"reelsub/internal/translation"
)

const logHubCapacity = 4096

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Factory overrides the configured provider; used by tests.
	Factory translation.Factory
	// Ready, when set, receives the daemon once it holds the lock.
	Ready func(*daemon.Daemon)
}

// Run starts the HTTP service and blocks until ctx ends or a signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logHub := logging.NewStreamHub(logHubCapacity)
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		File:        cfg.Logging.File,
		Development: opts.Development,
		Hub:         logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	recorder := metrics.New()
	factory := opts.Factory
	if factory == nil {
		if factory, err = app.ProviderFactory(cfg); err != nil {
			return err
		}
	}
	pipeline, err := app.NewPipeline(cfg, factory, logger, recorder)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	d, err := daemon.New(cfg, pipeline, factory, logger, logHub, recorder)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		return err
	}
	defer d.Stop()

	pidPath := filepath.Join(cfg.Server.StateDir, "reelsub.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if opts.Ready != nil {
		opts.Ready(d)
	}
	if err := d.Serve(signalCtx); err != nil {
		return err
	}
	logger.Info("reelsub daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return fileutil.WriteFileAtomic(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("provider", cfg.Provider.Name),
		logging.String("default_model", cfg.Provider.DefaultModel),
		logging.Bool("env_credential_present", cfg.EnvCredential() != ""),
		logging.Int("chunk_size", cfg.Translation.ChunkSize),
		logging.Int("pace_delay_ms", cfg.Translation.PaceDelayMS),
		logging.String("models", strings.Join(cfg.Translation.Models, ",")),
		logging.String("bind", cfg.Server.Bind),
		logging.Bool("api_token_set", cfg.Server.APIToken != ""),
		logging.Int("rate_limit_per_minute", cfg.Server.RateLimitPerMinute),
	)
}
