// Package daemon runs validation continuously: a cron schedule, an optional
// manifest watch, and a Prometheus metrics endpoint. The actual validation
// pass is injected so the daemon stays a pure scheduling shell.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
)

// RunFunc executes one full validation pass. The daemon logs a returned
// error and keeps going; run bookkeeping happens inside the pass itself.
type RunFunc func(ctx context.Context) error

// Options configure a Daemon.
type Options struct {
	Schedule     string        // cron expression or "@every <duration>"
	Watch        bool          // re-validate when the manifest changes
	ManifestPath string        // file watched when Watch is set
	Debounce     time.Duration // quiet window for watch triggers
	MetricsAddr  string        // listen address for /metrics; empty disables
	Run          RunFunc
}

// Daemon schedules validation passes and serves metrics.
type Daemon struct {
	opts      Options
	scheduler gocron.Scheduler
	watcher   *fsnotify.Watcher
	server    *http.Server
	registry  *prom.Registry

	metricsURL string

	triggerChan chan string
	stopChan    chan struct{}
	stopOnce    sync.Once

	mu      sync.Mutex
	running bool
	pending bool
}

// New creates a daemon. Wire recorders against Registry() before Start.
func New(opts Options) (*Daemon, error) {
	if opts.Run == nil {
		return nil, fmt.Errorf("daemon requires a run function")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Daemon{
		opts:        opts,
		scheduler:   scheduler,
		registry:    prom.NewRegistry(),
		triggerChan: make(chan string, 1),
		stopChan:    make(chan struct{}),
	}, nil
}

// Registry returns the Prometheus registry served by the metrics endpoint.
func (d *Daemon) Registry() *prom.Registry { return d.registry }

// MetricsURL returns the base URL of the metrics listener, empty when the
// endpoint is disabled or not yet started.
func (d *Daemon) MetricsURL() string { return d.metricsURL }

// Start registers the scheduled job, begins watching, and serves metrics.
// It returns once everything is running; Stop shuts it down.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.scheduleJob(); err != nil {
		return err
	}
	d.scheduler.Start()

	if d.opts.Watch {
		if err := d.startWatcher(ctx); err != nil {
			return err
		}
	}
	if d.opts.MetricsAddr != "" {
		if err := d.startMetricsServer(); err != nil {
			return err
		}
	}

	go d.triggerLoop(ctx)

	// First pass right away so a freshly started daemon reports state
	// without waiting for the schedule.
	d.trigger("startup")

	slog.Info("Daemon started",
		slog.String("schedule", d.opts.Schedule),
		slog.Bool("watch", d.opts.Watch))
	return nil
}

// Stop shuts everything down. Safe to call more than once.
func (d *Daemon) Stop(ctx context.Context) error {
	var firstErr error
	d.stopOnce.Do(func() {
		close(d.stopChan)
		if err := d.scheduler.Shutdown(); err != nil {
			firstErr = fmt.Errorf("failed to stop scheduler: %w", err)
		}
		if d.watcher != nil {
			if err := d.watcher.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to close watcher: %w", err)
			}
		}
		if d.server != nil {
			if err := d.server.Shutdown(ctx); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to stop metrics server: %w", err)
			}
		}
		slog.Info("Daemon stopped")
	})
	return firstErr
}

func (d *Daemon) scheduleJob() error {
	definition, err := jobDefinition(d.opts.Schedule)
	if err != nil {
		return err
	}
	if _, err := d.scheduler.NewJob(definition,
		gocron.NewTask(func() { d.trigger("schedule") }),
		gocron.WithName("validation"),
	); err != nil {
		return fmt.Errorf("failed to schedule validation job: %w", err)
	}
	return nil
}

// jobDefinition maps a schedule expression onto a gocron job definition.
func jobDefinition(expr string) (gocron.JobDefinition, error) {
	expr = strings.TrimSpace(expr)
	if rem, ok := strings.CutPrefix(expr, "@every "); ok {
		dur, err := time.ParseDuration(strings.TrimSpace(rem))
		if err != nil {
			return nil, fmt.Errorf("invalid @every schedule %q: %w", expr, err)
		}
		return gocron.DurationJob(dur), nil
	}
	return gocron.CronJob(expr, false), nil
}

func (d *Daemon) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(d.opts.ManifestPath)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	// Watch the directory; editors tend to replace files rather than write
	// in place, and a directory watch survives that.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	d.watcher = watcher
	go d.watchLoop(ctx, filepath.Base(abs))
	slog.Info("Watching manifest", logfields.Path(abs))
	return nil
}

func (d *Daemon) watchLoop(ctx context.Context, manifestName string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopChan:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != manifestName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				slog.Debug("Manifest change detected",
					logfields.Path(event.Name),
					slog.String("op", event.Op.String()))
				d.trigger("manifest_change")
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Manifest watcher error", logfields.Error(err))
		}
	}
}

func (d *Daemon) startMetricsServer() error {
	ln, err := net.Listen("tcp", d.opts.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.opts.MetricsAddr, err)
	}

	d.registry.MustRegister(
		promcollect.NewGoCollector(),
		promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	d.metricsURL = "http://" + ln.Addr().String()

	go func() {
		slog.Info("Metrics endpoint listening", slog.String("addr", ln.Addr().String()))
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	return nil
}

// trigger requests a validation pass. A request already waiting to start
// absorbs the new one.
func (d *Daemon) trigger(reason string) {
	select {
	case d.triggerChan <- reason:
	default:
	}
}

// triggerLoop debounces triggers and hands them to runPass. A later trigger
// inside the quiet window restarts the timer with its own reason.
func (d *Daemon) triggerLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-d.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case reason := <-d.triggerChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(d.opts.Debounce, func() {
				d.runPass(ctx, reason)
			})
		}
	}
}

// runPass executes validation. A trigger landing while a pass is running
// queues exactly one follow-up pass.
func (d *Daemon) runPass(ctx context.Context, reason string) {
	d.mu.Lock()
	if d.running {
		d.pending = true
		d.mu.Unlock()
		slog.Debug("Validation already running, queuing follow-up")
		return
	}
	d.running = true
	d.mu.Unlock()

	for {
		start := time.Now()
		slog.Info("Validation pass started", slog.String("reason", reason))
		if err := d.opts.Run(ctx); err != nil {
			slog.Error("Validation pass failed", logfields.Error(err))
		} else {
			slog.Info("Validation pass finished",
				logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		}

		d.mu.Lock()
		if d.pending {
			d.pending = false
			d.mu.Unlock()
			reason = "queued"
			continue
		}
		d.running = false
		d.mu.Unlock()
		return
	}
}
