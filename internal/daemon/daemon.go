package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelsub/internal/api"
	"reelsub/internal/config"
	"reelsub/internal/gateway"
	"reelsub/internal/logging"
	"reelsub/internal/metrics"
	"reelsub/internal/notifications"
	"reelsub/internal/translation"
)

// Daemon serves translation requests and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *translation.Pipeline
	factory  translation.Factory
	hub      *logging.StreamHub
	metrics  *metrics.Recorder
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	runSlot chan struct{}
	busy    atomic.Bool
	running atomic.Bool

	lastMu  sync.Mutex
	lastRun *api.RunSummary
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Busy         bool
	PID          int
	LockFilePath string
	LastRun      *api.RunSummary
}

// New constructs a daemon. The factory is used for model discovery; the
// pipeline for translations.
func New(cfg *config.Config, pipeline *translation.Pipeline, factory translation.Factory, logger *slog.Logger, hub *logging.StreamHub, recorder *metrics.Recorder) (*Daemon, error) {
	if cfg == nil || pipeline == nil || factory == nil {
		return nil, errors.New("daemon requires config, pipeline, and provider factory")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		pipeline: pipeline,
		factory:  factory,
		hub:      hub,
		metrics:  recorder,
		notifier: notifications.NewService(cfg),
		runSlot:  make(chan struct{}, 1),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// SetNotifier replaces the run notifier built from the configuration.
func (d *Daemon) SetNotifier(n notifications.Service) {
	if n != nil {
		d.notifier = n
	}
}

// Start acquires the instance lock.
func (d *Daemon) Start() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another reelsub server is already using %s", d.lockPath)
	}
	d.running.Store(true)
	d.logger.Info("reelsub daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no server is running"),
			logging.String(logging.FieldImpact, "the next server start may report a running instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("reelsub daemon stopped")
}

// Status reports the daemon state.
func (d *Daemon) Status() Status {
	d.lastMu.Lock()
	var last *api.RunSummary
	if d.lastRun != nil {
		copied := *d.lastRun
		last = &copied
	}
	d.lastMu.Unlock()
	return Status{
		Running:      d.running.Load(),
		Busy:         d.busy.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		LastRun:      last,
	}
}

// LogStream exposes the log hub, which may be nil.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// Translate runs one translation. Concurrent callers wait their turn and
// give up as soon as their context ends.
func (d *Daemon) Translate(ctx context.Context, req translation.Request) (translation.Result, error) {
	select {
	case d.runSlot <- struct{}{}:
	case <-ctx.Done():
		return translation.Result{}, ctx.Err()
	}
	defer func() { <-d.runSlot }()
	if err := ctx.Err(); err != nil {
		return translation.Result{}, err
	}
	d.busy.Store(true)
	defer d.busy.Store(false)

	summary := &api.RunSummary{
		Status:    string(translation.StateTranslating),
		Pair:      req.Pair.String(),
		Style:     string(req.Style),
		StartedAt: time.Now().UTC(),
	}
	d.setLastRun(summary)

	result, err := d.pipeline.Run(ctx, req, func(p translation.Progress) {
		d.lastMu.Lock()
		summary.RunID = p.RunID
		summary.Chunks = p.Completed
		d.lastMu.Unlock()
	})

	d.lastMu.Lock()
	summary.FinishedAt = time.Now().UTC()
	switch {
	case err != nil:
		summary.Status = string(translation.StateFailed)
		summary.Error = err.Error()
	default:
		summary.Status = string(translation.StateDone)
		summary.RunID = result.RunID
		summary.Chunks = len(result.Chunks)
		summary.Models = append([]string(nil), result.Models...)
	}
	finished := *summary
	d.lastMu.Unlock()

	d.notify(ctx, finished, err)
	return result, err
}

func (d *Daemon) notify(ctx context.Context, summary api.RunSummary, runErr error) {
	failure, chunk := translation.FailureOf(runErr)
	if errors.Is(runErr, context.Canceled) || (failure != nil && failure.Kind == gateway.KindCanceled) {
		return
	}
	event := notifications.EventRunCompleted
	payload := notifications.Payload{
		"pair":     summary.Pair,
		"style":    summary.Style,
		"chunks":   summary.Chunks,
		"models":   summary.Models,
		"duration": summary.FinishedAt.Sub(summary.StartedAt),
	}
	if runErr != nil {
		event = notifications.EventRunFailed
		payload["chunk"] = chunk
		payload["error"] = runErr.Error()
		if failure != nil {
			payload["kind"] = string(failure.Kind)
			payload["error"] = failure.Message
		}
	} else if summary.Chunks == 0 {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.NtfyTimeout())
	defer cancel()
	if err := d.notifier.Publish(notifyCtx, event, payload); err != nil {
		logging.WarnWithContext(d.logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "the run result is unaffected"),
		)
	}
}

func (d *Daemon) setLastRun(summary *api.RunSummary) {
	d.lastMu.Lock()
	d.lastRun = summary
	d.lastMu.Unlock()
}

// Models lists models the credential can use.
func (d *Daemon) Models(ctx context.Context, credential string) (string, []string, error) {
	provider, err := d.factory(ctx, credential)
	if err != nil {
		return "", nil, err
	}
	models, err := provider.ListCapableModels(ctx)
	if err != nil {
		return provider.Name(), nil, err
	}
	return provider.Name(), translation.PreferFast(models), nil
}
