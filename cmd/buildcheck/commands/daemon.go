package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/baseline"
	"git.home.luguber.info/inful/buildcheck/internal/config"
	"git.home.luguber.info/inful/buildcheck/internal/daemon"
	"git.home.luguber.info/inful/buildcheck/internal/manifest"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
	"git.home.luguber.info/inful/buildcheck/internal/notify"
	"git.home.luguber.info/inful/buildcheck/internal/retry"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Schedule    string `help:"Override the configured schedule (cron or '@every <duration>')"`
	Watch       bool   `help:"Re-validate when the dependency manifest changes"`
	MetricsAddr string `name:"metrics-addr" help:"Override the Prometheus /metrics listen address"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	dc := cfg.Daemon
	if dc == nil {
		dc = &config.DaemonConfig{
			Schedule:    config.DefaultSchedule,
			DebounceMS:  config.DefaultDebounceMS,
			MetricsAddr: config.DefaultMetricsAddr,
		}
	}
	if d.Schedule != "" {
		dc.Schedule = d.Schedule
	}
	if d.Watch {
		dc.Watch = true
	}
	if d.MetricsAddr != "" {
		dc.MetricsAddr = d.MetricsAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The broker may come up after us at boot, so the daemon dials with
	// bounded backoff instead of failing outright.
	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.Notify != nil {
		pub, err := notify.NewNATSPublisherWithRetry(ctx, cfg.Notify.URL, cfg.Notify.Subject, retry.DefaultPolicy())
		if err != nil {
			return fmt.Errorf("connect notify publisher: %w", err)
		}
		defer pub.Close()
		publisher = pub
	}

	manifestPath := manifest.Find(cfg.Package.Dir)
	if dc.Watch && manifestPath == "" {
		return fmt.Errorf("daemon watch requires a %s under %s", manifest.FileName, cfg.Package.Dir)
	}

	// The recorder is bound to the daemon's registry after construction; the
	// pass closure sees the reassignment because Start happens later.
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	runPass := func(ctx context.Context) error {
		result := baseline.NewChecker(cfg.Package.Dir, nil).WithRecorder(recorder).Check(ctx)
		if result.Blocking() {
			return fmt.Errorf("baseline %s", result.Status)
		}

		summary, _, err := ExecuteMatrix(ctx, cfg, MatrixRun{
			ForceClean: cfg.Matrix.ForceClean,
			Parallel:   cfg.Matrix.Parallel,
			Record:     true,
			Recorder:   recorder,
			Publisher:  publisher,
		})
		if err != nil {
			return err
		}
		if !summary.Succeeded() {
			return fmt.Errorf("matrix run failed: %s", summary.Line())
		}
		return nil
	}

	dm, err := daemon.New(daemon.Options{
		Schedule:     dc.Schedule,
		Watch:        dc.Watch,
		ManifestPath: manifestPath,
		Debounce:     dc.Debounce(),
		MetricsAddr:  dc.MetricsAddr,
		Run:          runPass,
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	recorder = metrics.NewPrometheusRecorder(dm.Registry())

	errChan := make(chan error, 1)
	go func() {
		errChan <- dm.Start(ctx)
	}()

	slog.Info("Daemon started, waiting for shutdown signal...")

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := dm.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}
