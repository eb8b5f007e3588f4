package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/artifacts"
	"git.home.luguber.info/inful/buildcheck/internal/config"
	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
	"git.home.luguber.info/inful/buildcheck/internal/gitrepo"
	"git.home.luguber.info/inful/buildcheck/internal/logfields"
	"git.home.luguber.info/inful/buildcheck/internal/manifest"
	"git.home.luguber.info/inful/buildcheck/internal/matrix"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
	"git.home.luguber.info/inful/buildcheck/internal/notify"
	"git.home.luguber.info/inful/buildcheck/internal/overlay"
	"git.home.luguber.info/inful/buildcheck/internal/preset"
	"git.home.luguber.info/inful/buildcheck/internal/report"
	"git.home.luguber.info/inful/buildcheck/internal/runstore"
	"git.home.luguber.info/inful/buildcheck/internal/toolchain"
	"git.home.luguber.info/inful/buildcheck/internal/workspace"
)

// MatrixCmd implements the 'matrix' command.
type MatrixCmd struct {
	ForceClean bool   `help:"Delete generated directories even when cells fail"`
	Parallel   int    `short:"p" help:"Concurrent cells (overrides matrix.parallel)"`
	CollectDir string `help:"Copy the run's log tree here after the run"`
	ReportDir  string `help:"Write run reports here instead of the run log directory"`
	Record     bool   `help:"Record the run in the history database"`
}

func (m *MatrixCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	run := MatrixRun{
		ForceClean: m.ForceClean || cfg.Matrix.ForceClean,
		Parallel:   cfg.Matrix.Parallel,
		CollectDir: m.CollectDir,
		ReportDir:  m.ReportDir,
		Record:     m.Record,
	}
	if m.Parallel > 0 {
		run.Parallel = m.Parallel
	}
	if cfg.Notify != nil {
		pub, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.Subject)
		if err != nil {
			return fmt.Errorf("connect notify publisher: %w", err)
		}
		defer pub.Close()
		run.Publisher = pub
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("Starting buildcheck matrix")
	summary, _, err := ExecuteMatrix(ctx, cfg, run)
	if err != nil {
		return err
	}

	fmt.Println(summary.Line())
	if code := summary.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// MatrixRun bundles the per-run knobs shared by the matrix command and the
// daemon's scheduled passes.
type MatrixRun struct {
	ForceClean bool
	Parallel   int
	CollectDir string
	ReportDir  string
	Record     bool

	Runner    toolchain.Runner
	Recorder  metrics.Recorder
	Publisher notify.Publisher
}

// ExecuteMatrix performs one full validation run: preconditions, overlay
// synthesis, every matrix cell, report persistence, run bookkeeping, and the
// artifact lifecycle decision. The returned error covers setup failures only;
// failed cells are reported through the summary.
func ExecuteMatrix(ctx context.Context, cfg *config.Config, run MatrixRun) (matrix.RunSummary, *report.RunReport, error) {
	runner := run.Runner
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	recorder := run.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	toolchainFile, err := toolchain.ToolchainFile()
	if err != nil {
		return matrix.RunSummary{}, nil, err
	}
	if err := toolchain.RequireTools(runner, toolchain.ToolCMake, toolchain.ToolVcpkg); err != nil {
		return matrix.RunSummary{}, nil, err
	}

	manifestPath := manifest.Find(cfg.Package.Dir)
	if manifestPath == "" {
		return matrix.RunSummary{}, nil, errdefs.ManifestInvalid(
			filepath.Join(cfg.Package.Dir, manifest.FileName), "manifest not found")
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return matrix.RunSummary{}, nil, err
	}

	layout := workspace.NewLayout(cfg.Workspace.Root)
	if err := layout.Ensure(); err != nil {
		return matrix.RunSummary{}, nil, err
	}

	entry, err := overlay.New(cfg.Package.Dir, m).Synthesize(layout.OverlayDir())
	if err != nil {
		return matrix.RunSummary{}, nil, err
	}

	finalizer := artifacts.NewFinalizer(layout, run.ForceClean)
	// Backstop for panics and early exits; the first Finalize call wins.
	defer finalizer.Finalize(false)

	orch := matrix.New(matrix.Options{
		Package:         m.Name,
		Version:         m.Version(),
		SourceDir:       cfg.Package.Dir,
		ConsumerDir:     filepath.Join(cfg.Package.Dir, cfg.Package.ConsumerDir),
		ConsumerBinary:  cfg.Package.ConsumerBinary,
		ToolchainFile:   toolchainFile,
		OverlayPortsDir: entry.PortsDir,
		Ambient:         preset.AmbientFromEnv(),
		Parallel:        run.Parallel,
		Runner:          runner,
		Layout:          layout,
		Recorder:        recorder,
	})
	summary := orch.Run(ctx)

	rep := report.FromSummary(summary)
	if info, err := gitrepo.Discover(cfg.Package.Dir); err == nil {
		rep.Commit = info.Commit
		rep.Branch = info.Branch
	} else {
		slog.Debug("No enclosing git repository", logfields.Error(err))
	}

	_, inCI := os.LookupEnv(artifacts.CIMarkerVar)
	if decision, _ := artifacts.Decide(run.ForceClean, inCI, summary.Succeeded()); decision == artifacts.DecisionPreserve {
		rep.PreservedDirs = layout.GeneratedDirs()
	}

	reportDir := run.ReportDir
	if reportDir == "" {
		reportDir = layout.RunLogsDir(summary.RunID)
	}
	if err := rep.Persist(reportDir); err != nil {
		slog.Warn("Report persistence failed", logfields.Error(err))
	} else {
		slog.Info("Run report written", logfields.Path(reportDir))
	}

	if run.CollectDir != "" {
		if err := CopyDir(layout.RunLogsDir(summary.RunID), run.CollectDir); err != nil {
			slog.Warn("Log collection copy failed", logfields.Error(err))
		} else {
			slog.Info("Collected run logs", logfields.Path(run.CollectDir))
		}
	}

	// Bookkeeping gets its own context so an interrupted run is still
	// recorded and announced.
	bookCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if run.Record {
		if err := recordRun(bookCtx, cfg.Store.Path, rep); err != nil {
			slog.Warn("Run history record failed", logfields.Error(err))
		}
	}
	if run.Publisher != nil {
		if err := run.Publisher.PublishRun(bookCtx, notify.FromReport(rep)); err != nil {
			slog.Warn("Run event publish failed", logfields.Error(err))
		}
	}

	finalizer.Finalize(summary.Succeeded())
	return summary, rep, nil
}

func recordRun(ctx context.Context, dbPath string, rep *report.RunReport) error {
	store, err := runstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()
	return store.RecordRun(ctx, rep)
}
