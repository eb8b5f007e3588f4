package matrix

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
	"git.home.luguber.info/inful/buildcheck/internal/preset"
	"git.home.luguber.info/inful/buildcheck/internal/toolchain"
	"git.home.luguber.info/inful/buildcheck/internal/workspace"
)

// Options configures one matrix run. The command layer assembles it from the
// loaded configuration and resolved environment.
type Options struct {
	Package         string
	Version         string
	SourceDir       string
	ConsumerDir     string
	ConsumerBinary  string
	ToolchainFile   string
	OverlayPortsDir string
	Ambient         preset.Compilers
	Cells           []Cell
	// Parallel caps concurrent cells; values below 2 mean sequential.
	Parallel int
	RunID    string
	Runner   toolchain.Runner
	Layout   *workspace.Layout
	Recorder metrics.Recorder
}

// Orchestrator walks every matrix cell through its pipeline and aggregates
// the run summary.
type Orchestrator struct {
	opts Options
}

// New creates an orchestrator, filling unset options with defaults.
func New(opts Options) *Orchestrator {
	if len(opts.Cells) == 0 {
		opts.Cells = DefaultCells()
	}
	if opts.Runner == nil {
		opts.Runner = toolchain.ExecRunner{}
	}
	if opts.Layout == nil {
		opts.Layout = workspace.NewLayout("")
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	return &Orchestrator{opts: opts}
}

// Run executes every cell and returns the aggregated summary. A failing cell
// never aborts the matrix; results keep the fixed enumeration order even when
// cells run concurrently. Cancellation marks the remaining cells canceled and
// still returns a complete summary so artifact and report handling can run.
func (o *Orchestrator) Run(ctx context.Context) RunSummary {
	opts := &o.opts
	summary := RunSummary{
		RunID:   opts.RunID,
		Package: opts.Package,
		Version: opts.Version,
		Start:   time.Now(),
	}

	slog.Info("Starting matrix run",
		logfields.RunID(opts.RunID),
		slog.Int("cells", len(opts.Cells)),
		slog.Int("parallel", opts.Parallel))
	opts.Recorder.SetParallelCells(opts.Parallel)

	results := make([]CellResult, len(opts.Cells))
	if opts.Parallel > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Parallel)
		for i, cell := range opts.Cells {
			g.Go(func() error {
				results[i] = o.runCell(ctx, cell)
				return nil
			})
		}
		// Cells report failure through their result, never through an error.
		_ = g.Wait()
	} else {
		for i, cell := range opts.Cells {
			results[i] = o.runCell(ctx, cell)
		}
	}

	summary.Results = results
	summary.End = time.Now()
	summary.Canceled = ctx.Err() != nil

	opts.Recorder.ObserveRunDuration(summary.End.Sub(summary.Start))
	switch {
	case summary.Canceled:
		opts.Recorder.IncRunOutcome(metrics.RunCanceled)
	case summary.Succeeded():
		opts.Recorder.IncRunOutcome(metrics.RunPassed)
	default:
		opts.Recorder.IncRunOutcome(metrics.RunFailed)
	}

	slog.Info("Matrix run complete",
		logfields.RunID(opts.RunID),
		slog.String("summary", summary.Line()))
	return summary
}

// runCell executes one cell's full pipeline and collects its logs. Any
// failure is terminal for this cell only.
func (o *Orchestrator) runCell(ctx context.Context, cell Cell) CellResult {
	opts := &o.opts
	name := cell.Name()

	buildDir, installDir, err := opts.Layout.EnsureCell(name)
	if err != nil {
		now := time.Now()
		result := CellResult{
			Cell:        cell,
			Stages:      []StageResult{{Stage: StageConfigure, Status: StageFatal}},
			FailedStage: StageConfigure,
			Diagnostic:  err.Error(),
			Start:       now,
			End:         now,
		}
		o.recordCell(result)
		return result
	}

	cs := &cellState{
		cell:        cell,
		opts:        opts,
		buildDir:    buildDir,
		installDir:  installDir,
		consumerDir: opts.Layout.ConsumerBuildDir(name),
		compilers:   preset.ResolveFor(cell.ProfileName(), preset.Compilers{}, opts.Ambient),
	}

	result := runCellStages(ctx, cs, cellStageDefs())

	// Logs are collected regardless of outcome.
	logDir := opts.Layout.CellLogsDir(opts.RunID, name)
	result.LogDir = logDir
	if err := collectLogs(logDir, map[string]string{
		"build":    buildDir,
		"install":  installDir,
		"consumer": cs.consumerDir,
	}); err != nil {
		slog.Warn("Log collection incomplete", logfields.Cell(name), logfields.Error(err))
	}

	o.recordCell(result)
	return result
}

func (o *Orchestrator) recordCell(result CellResult) {
	opts := &o.opts
	name := result.Cell.Name()
	for _, sr := range result.Stages {
		opts.Recorder.ObserveStageDuration(name, string(sr.Stage), sr.Duration)
		switch sr.Status {
		case StageSuccess:
			opts.Recorder.IncStageResult(name, string(sr.Stage), metrics.ResultSuccess)
		case StageCanceled:
			opts.Recorder.IncStageResult(name, string(sr.Stage), metrics.ResultCanceled)
		default:
			opts.Recorder.IncStageResult(name, string(sr.Stage), metrics.ResultFatal)
		}
	}
	opts.Recorder.ObserveCellDuration(name, result.Duration())
	opts.Recorder.IncCellOutcome(name, result.Passed)

	if result.Passed {
		slog.Info("Cell passed",
			logfields.Cell(name),
			logfields.DurationMS(float64(result.Duration().Milliseconds())))
		return
	}
	slog.Warn("Cell failed",
		logfields.Cell(name),
		logfields.Stage(string(result.FailedStage)),
		logfields.DurationMS(float64(result.Duration().Milliseconds())))
}
